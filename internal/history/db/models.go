package db

type Run struct {
	ID           int64
	CreatedAt    int64
	Mode         string
	ReportDate   string
	StopReason   string
	Pages        int64
	MatchCount   int64
	RowCount     int64
	FailureCount int64
	CsvPath      string
	ReportPath   string
}
