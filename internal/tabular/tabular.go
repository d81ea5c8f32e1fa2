// Package tabular exports crawled rows as spreadsheet friendly CSV and reads
// such exports back.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"crazycar-stats/internal/crawl"
	"crazycar-stats/pkg/htmlutil"
)

// ResultMarker keeps spreadsheets from turning race times into clock times.
const ResultMarker = "'"

const (
	bom         = "\ufeff"
	unknownDate = "00-00"
	unknownMode = "未知"
)

var (
	ErrNoRows        = errors.New("tabular: no rows")
	ErrMissingHeader = errors.New("tabular: no header with a 角色 column")
)

// Header is the column layout of every export.
var Header = crawl.FallbackHeader

func markResult(result string) string {
	if strings.Contains(result, ":") {
		return ResultMarker + result
	}
	return result
}

func unmarkResult(result string) string {
	if strings.HasPrefix(result, ResultMarker) && strings.Contains(result, ":") {
		return strings.TrimPrefix(result, ResultMarker)
	}
	return result
}

// Write writes a UTF-8 BOM, the header and one record per row.
func Write(w io.Writer, rows []crawl.MatchRow) error {
	_, err := io.WriteString(w, bom)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	err = writer.Write(Header)
	if err != nil {
		return err
	}
	for _, row := range rows {
		err = writer.Write([]string{
			row.Mode,
			row.Map,
			row.StartTime,
			row.Role,
			row.Car,
			row.Team,
			crawl.FormatRank(row.Rank),
			markResult(row.Result),
			row.Exp,
			row.Coins,
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// FileName is "<date part of the first start time>_<mode of the first row>.csv".
func FileName(rows []crawl.MatchRow) string {
	date := unknownDate
	mode := unknownMode
	if len(rows) > 0 {
		if part, _, _ := strings.Cut(strings.TrimSpace(rows[0].StartTime), " "); part != "" {
			date = part
		}
		if rows[0].Mode != "" {
			mode = rows[0].Mode
		}
	}
	name := fmt.Sprintf("%s_%s.csv", date, mode)
	return strings.NewReplacer("/", "-", "\\", "-", ":", "-").Replace(name)
}

// WriteFile exports rows into dir and returns the path of the new file.
func WriteFile(dir string, rows []crawl.MatchRow) (string, error) {
	if len(rows) == 0 {
		return "", ErrNoRows
	}
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(rows))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buffered := bufio.NewWriter(f)
	err = Write(buffered, rows)
	if err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	err = buffered.Flush()
	if err != nil {
		return "", err
	}
	return path, f.Close()
}

// Read parses an export. The header may be preceded by a single title line,
// columns are matched by name so reordered or partial exports still load.
func Read(r io.Reader) ([]crawl.MatchRow, error) {
	contents, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	contents = bytes.TrimPrefix(contents, []byte(bom))

	reader := csv.NewReader(bytes.NewReader(contents))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("tabular: %w", err)
	}

	headerAt := -1
	for i := 0; i < len(records) && i < 2; i++ {
		if columnsOf(records[i]).has(crawl.ColumnRole) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, ErrMissingHeader
	}
	index := columnsOf(records[headerAt])

	var rows []crawl.MatchRow
	var sequence uint64
	var lastMatch [2]string
	for _, record := range records[headerAt+1:] {
		if blank(record) {
			continue
		}
		row := crawl.MatchRow{
			Mode:      index.get(record, crawl.ColumnMode),
			Map:       index.get(record, crawl.ColumnMap),
			StartTime: index.get(record, crawl.ColumnStartTime),
			Role:      index.get(record, crawl.ColumnRole),
			Car:       index.get(record, crawl.ColumnCar),
			Team:      index.get(record, crawl.ColumnTeam),
			Rank:      crawl.ParseRank(index.get(record, crawl.ColumnRank)),
			Result:    unmarkResult(index.get(record, crawl.ColumnResult)),
			Exp:       index.get(record, crawl.ColumnExp),
			Coins:     index.get(record, crawl.ColumnCoins),
		}
		// one sequence number per match, like a crawl would have assigned
		match := [2]string{row.StartTime, row.Map}
		if sequence == 0 || match != lastMatch {
			sequence++
			lastMatch = match
		}
		row.Sequence = sequence
		rows = append(rows, row)
	}
	return rows, nil
}

func ReadFile(path string) ([]crawl.MatchRow, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return nil, fmt.Errorf("tabular: %s: only csv exports can be read", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

type columns map[string]int

func columnsOf(header []string) columns {
	c := columns{}
	for i, name := range header {
		name = htmlutil.CleanText(strings.TrimPrefix(name, bom))
		if _, seen := c[name]; !seen {
			c[name] = i
		}
	}
	return c
}

func (c columns) has(name string) bool {
	_, ok := c[name]
	return ok
}

func (c columns) get(record []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(record) {
		return ""
	}
	return htmlutil.CleanText(record[i])
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
