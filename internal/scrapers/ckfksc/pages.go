package ckfksc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"crazycar-stats/internal/crawl"
	"crazycar-stats/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_client_fetch_listing = "client.fetch-listing"
	report_client_fetch_detail  = "client.fetch-detail"
)

var ErrMissingTable = errors.New("ckfksc: page has no result table")

// GameModes lists the modes in the order of their game type ids.
var GameModes = []string{"个人竞速", "组队竞速", "个人道具", "组队道具", "个人疾爽", "组队疾爽"}

// GameTypeID maps a mode name to the id the listing endpoint expects, anything
// else is assumed to already be an id.
func GameTypeID(gameType string) string {
	i := slices.Index(GameModes, gameType)
	if i < 0 {
		return gameType
	}
	return strconv.Itoa(i)
}

const (
	emptyListingMarker = "没有对局"
	detailAnchorText   = "详情"
)

func (c *Client) FetchListing(ctx context.Context, gameType string, page int) (crawl.ListingPage, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"pageNum":  strconv.Itoa(page),
			"gameType": GameTypeID(gameType),
			"mapCode":  "",
		}).
		Get("/user/game")
	if err != nil {
		return crawl.ListingPage{}, fmt.Errorf("fetch listing page %d: %w", page, err)
	}
	if res.IsError() {
		err := fmt.Errorf("fetch listing page %d: unexpected status %s", page, res.Status())
		c.tel.ReportBroken(report_client_fetch_listing, err)
		return crawl.ListingPage{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_listing, fmt.Errorf("parse: %w", err), page)
		return crawl.ListingPage{}, err
	}
	return c.parseListing(doc), nil
}

func (c *Client) parseListing(doc *goquery.Document) crawl.ListingPage {
	var out crawl.ListingPage

	doc.Find("table.table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cols := htmlutil.Cells(row, "td")
		if len(cols) == 0 || strings.Contains(cols[0], emptyListingMarker) {
			return
		}

		listing := crawl.ListingRow{Mode: cols[0]}
		if len(cols) > 1 {
			listing.Map = cols[1]
		}
		if len(cols) > 6 {
			listing.StartTime = cols[6]
		}

		href, ok := htmlutil.FindAnchor(row, detailAnchorText)
		if ok {
			locator, err := c.resolve(href)
			if err != nil {
				c.tel.ReportWarning(report_client_fetch_listing, fmt.Errorf("resolve detail link: %w", err), href)
			} else {
				listing.DetailLocator = locator
			}
		}
		out.Rows = append(out.Rows, listing)
	})

	out.HasNext = doc.Find("ul.pagination li.active + li a").Length() > 0
	c.tel.ReportDebug("parsed listing", len(out.Rows), out.HasNext)
	return out
}

// FetchDetail retrieves the player table of a match, `locator` is the absolute
// url found on the listing page.
func (c *Client) FetchDetail(ctx context.Context, locator string) (crawl.DetailPage, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(locator)
	if err != nil {
		return crawl.DetailPage{}, fmt.Errorf("fetch detail: %w", err)
	}
	if res.IsError() {
		return crawl.DetailPage{}, fmt.Errorf("fetch detail: unexpected status %s", res.Status())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_detail, fmt.Errorf("parse: %w", err), locator)
		return crawl.DetailPage{}, err
	}
	return parseDetail(ctx, doc)
}

func parseDetail(ctx context.Context, doc *goquery.Document) (crawl.DetailPage, error) {
	table := doc.Find("table.table").First()
	if table.Length() == 0 {
		return crawl.DetailPage{}, ErrMissingTable
	}

	var page crawl.DetailPage
	headerRow := table.Find("thead tr").First()
	if headerRow.Length() > 0 {
		page.Header = htmlutil.Cells(headerRow, "th")
	}
	page.Rows = htmlutil.TableRows(ctx, table.Find("tbody tr"), "td")
	return page, nil
}
