package crawl

import (
	"context"
	"strconv"

	"crazycar-stats/internal/components/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const report_fetcher_fetch = "fetcher.fetch"

// detailColumns are the detail table columns in the order the site serves them,
// used positionally when a detail page has no header.
var detailColumns = []string{
	ColumnRole, ColumnCar, ColumnTeam, ColumnRank, ColumnResult, ColumnExp, ColumnCoins,
}

// Fetcher turns a MatchSummary into the player rows of that match.
type Fetcher struct {
	source DetailSource
	tel    telemetry.API
}

func NewFetcher(source DetailSource, tel telemetry.API) Fetcher {
	return Fetcher{source: source, tel: tel}
}

// Fetch never returns an error directly, failures are carried by the result.
func (f Fetcher) Fetch(ctx context.Context, summary MatchSummary) FetchResult {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("sequence", int64(summary.Sequence)),
		attribute.String("map", summary.Map),
	)

	page, err := f.source.FetchDetail(ctx, summary.DetailLocator)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch detail")
		f.tel.ReportWarning(report_fetcher_fetch, err, summary.DetailLocator)
		return FetchResult{Summary: summary, Err: err}
	}

	var header []string
	if len(page.Header) > 0 {
		header = append(append([]string(nil), SummaryHeader...), page.Header...)
	}

	index := newColumnIndex(page.Header)
	rows := make([]MatchRow, 0, len(page.Rows))
	for _, cells := range page.Rows {
		if len(cells) == 0 {
			continue
		}
		rows = append(rows, index.row(summary, cells))
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))

	return FetchResult{
		Summary: summary,
		Header:  header,
		Rows:    rows,
	}
}

type columnIndex map[string]int

func newColumnIndex(header []string) columnIndex {
	index := columnIndex{}
	for i, name := range header {
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}
	for i, name := range detailColumns {
		if _, ok := index[name]; !ok && len(header) == 0 {
			index[name] = i
		}
	}
	return index
}

func (c columnIndex) cell(cells []string, column string) string {
	i, ok := c[column]
	if !ok || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func (c columnIndex) row(summary MatchSummary, cells []string) MatchRow {
	return MatchRow{
		Mode:      summary.Mode,
		Map:       summary.Map,
		StartTime: summary.StartTime,
		Role:      c.cell(cells, ColumnRole),
		Car:       c.cell(cells, ColumnCar),
		Team:      c.cell(cells, ColumnTeam),
		Rank:      ParseRank(c.cell(cells, ColumnRank)),
		Result:    c.cell(cells, ColumnResult),
		Exp:       c.cell(cells, ColumnExp),
		Coins:     c.cell(cells, ColumnCoins),
		Sequence:  summary.Sequence,
	}
}

// ParseRank returns the rank in a cell, 0 when the cell holds no positive number.
func ParseRank(cell string) int {
	rank, err := strconv.Atoi(cell)
	if err != nil || rank < 1 {
		return 0
	}
	return rank
}

// FormatRank is the inverse of ParseRank, an absent rank is an empty cell.
func FormatRank(rank int) string {
	if rank == 0 {
		return ""
	}
	return strconv.Itoa(rank)
}
