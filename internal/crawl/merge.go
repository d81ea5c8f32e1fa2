package crawl

import (
	"cmp"
	"slices"
)

// mergeBuffer accumulates fetch results in whatever order they complete.
type mergeBuffer struct {
	header    []string
	headerSeq uint64
	rows      []MatchRow
	failures  []FetchFailure
	matches   int
}

func (b *mergeBuffer) add(result FetchResult) {
	if result.Failed() {
		b.failures = append(b.failures, FetchFailure{
			Summary: result.Summary,
			Err:     result.Err,
		})
		return
	}
	b.matches++

	// the header of the earliest match wins regardless of completion order
	if len(result.Header) > 0 && (b.header == nil || result.Summary.Sequence < b.headerSeq) {
		b.header = result.Header
		b.headerSeq = result.Summary.Sequence
	}
	b.rows = append(b.rows, result.Rows...)
}

// sortedRows returns the rows ordered by sequence number, rows of the same
// match keep the order of their detail table.
func (b *mergeBuffer) sortedRows() []MatchRow {
	rows := slices.Clone(b.rows)
	slices.SortStableFunc(rows, func(x, y MatchRow) int {
		return cmp.Compare(x.Sequence, y.Sequence)
	})
	return rows
}

func (b *mergeBuffer) sortedFailures() []FetchFailure {
	failures := slices.Clone(b.failures)
	slices.SortFunc(failures, func(x, y FetchFailure) int {
		return cmp.Compare(x.Summary.Sequence, y.Summary.Sequence)
	})
	return failures
}

// result finalizes the buffer, substituting FallbackHeader when rows exist but
// no detail page ever had a header.
func (b *mergeBuffer) result(reason StopReason, pages int) Result {
	rows := b.sortedRows()
	header := b.header
	if header == nil && len(rows) > 0 {
		header = slices.Clone(FallbackHeader)
	}
	return Result{
		Header:   header,
		Rows:     rows,
		Reason:   reason,
		Pages:    pages,
		Matches:  b.matches,
		Failures: b.sortedFailures(),
	}
}
