package crawl

import (
	"context"
	"errors"
	"fmt"
)

// Column names used by the site, FallbackHeader is also the canonical export schema.
const (
	ColumnMode      = "模式"
	ColumnMap       = "地图"
	ColumnStartTime = "开始时间"
	ColumnRole      = "角色"
	ColumnCar       = "车辆"
	ColumnTeam      = "队伍"
	ColumnRank      = "排名"
	ColumnResult    = "成绩"
	ColumnExp       = "经验"
	ColumnCoins     = "金币"
)

// SummaryHeader prefixes every detail header, the values come from the listing row.
var SummaryHeader = []string{ColumnMode, ColumnMap, ColumnStartTime}

// FallbackHeader is used when no detail page ever produced a header.
var FallbackHeader = []string{
	ColumnMode, ColumnMap, ColumnStartTime,
	ColumnRole, ColumnCar, ColumnTeam, ColumnRank, ColumnResult, ColumnExp, ColumnCoins,
}

// ListingRow is one match as shown on a listing page.
type ListingRow struct {
	Mode      string
	Map       string
	StartTime string
	// DetailLocator is empty when the row has no detail link.
	DetailLocator string
}

// ListingPage is one page of the paginated match listing.
type ListingPage struct {
	Rows    []ListingRow
	HasNext bool
}

// DetailPage is the raw table of a match detail page.
type DetailPage struct {
	// Header holds the <th> texts of the detail table, it may be empty.
	Header []string
	Rows   [][]string
}

// ListingSource retrieves listing pages, pages are numbered from 1.
type ListingSource interface {
	FetchListing(ctx context.Context, gameType string, page int) (ListingPage, error)
}

// DetailSource retrieves the detail page behind a locator.
type DetailSource interface {
	FetchDetail(ctx context.Context, locator string) (DetailPage, error)
}

// MatchSummary is a match queued for detail fetching.
type MatchSummary struct {
	Mode          string
	Map           string
	StartTime     string
	DetailLocator string
	// Sequence is assigned at dispatch and restores discovery order after the
	// concurrent fetches complete.
	Sequence uint64
}

// MatchRow is one player's result within a match.
type MatchRow struct {
	Mode      string
	Map       string
	StartTime string
	Role      string
	Car       string
	Team      string
	// Rank is normally 1..8, 0 when the cell was empty or not a number.
	Rank     int
	Result   string
	Exp      string
	Coins    string
	Sequence uint64
}

// FetchResult is either Ok (Err == nil, Rows may still be empty) or Failed.
type FetchResult struct {
	Summary MatchSummary
	Header  []string
	Rows    []MatchRow
	Err     error
}

func (r FetchResult) Failed() bool {
	return r.Err != nil
}

// FetchFailure records a match whose detail page could not be used.
type FetchFailure struct {
	Summary MatchSummary
	Err     error
}

func (f FetchFailure) Error() string {
	return fmt.Sprintf("match %d (%s %s): %s", f.Summary.Sequence, f.Summary.StartTime, f.Summary.Map, f.Err)
}

func (f FetchFailure) Unwrap() error {
	return f.Err
}

// StopReason tells why a crawl ended.
type StopReason int

const (
	StopTriggerReached StopReason = iota + 1
	// StopNoMoreData covers an empty listing page and a last page without a
	// next link.
	StopNoMoreData
	StopCancelled
	StopListingFailed
)

func (r StopReason) String() string {
	switch r {
	case StopTriggerReached:
		return "trigger-reached"
	case StopNoMoreData:
		return "no-more-data"
	case StopCancelled:
		return "cancelled"
	case StopListingFailed:
		return "listing-failed"
	}
	return "unknown"
}

// Result is the merged output of a crawl, Rows are in discovery order.
type Result struct {
	Header   []string
	Rows     []MatchRow
	Reason   StopReason
	Pages    int
	Matches  int
	Failures []FetchFailure
}

// FailuresErr joins every fetch failure into one error, nil when there were none.
func (r Result) FailuresErr() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}
