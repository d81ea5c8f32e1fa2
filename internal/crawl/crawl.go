package crawl

import (
	"context"
	"sync"
	"time"

	"crazycar-stats/internal/components/assert"
	"crazycar-stats/internal/components/telemetry"
	"crazycar-stats/internal/maporder"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

const (
	report_crawler_trigger = "crawler.trigger"
	report_crawler_listing = "crawler.fetch-listing"
	report_crawler_scan    = "crawler.scan"
	report_crawler_rows    = "crawler.rows"
	report_crawler_failed  = "crawler.failed-matches"
)

const (
	DefaultWorkers   = 20
	MaxWorkers       = 64
	DefaultPageDelay = 500 * time.Millisecond
)

var tracer = otel.Tracer("crazycar.internal.crawl")

var meter = otel.Meter("crazycar.internal.crawl")
var fetchedCounter, _ = meter.Int64Counter("crawl.matches_fetched")
var failedCounter, _ = meter.Int64Counter("crawl.matches_failed")

// Options configures a single crawl.
type Options struct {
	// GameType is the mode name or the site's raw game type id.
	GameType string
	// StartMap is the newest match to collect, nothing is collected until it is
	// seen. Empty means collect from the first row.
	StartMap string
	// StopMaps are the oldest matches to collect, the first one seen is included
	// and ends the crawl.
	StopMaps []string
	// Workers bounds the number of detail fetches in flight.
	Workers int
	// PageDelay is waited between listing pages.
	PageDelay time.Duration
}

func (o Options) normalized() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Workers > MaxWorkers {
		o.Workers = MaxWorkers
	}
	if o.PageDelay < 0 {
		o.PageDelay = 0
	}
	return o
}

// Crawler walks listing pages and collects the rows of every match between the
// start and stop triggers. A Crawler is meant for a single Run.
type Crawler struct {
	listing   ListingSource
	fetcher   Fetcher
	catalogue maporder.Catalogue
	opts      Options
	tel       telemetry.API

	stop     chan struct{}
	stopOnce sync.Once
}

func NewCrawler(
	listing ListingSource,
	details DetailSource,
	catalogue maporder.Catalogue,
	opts Options,
	tel telemetry.API,
) *Crawler {
	assert.NotNil(listing)
	assert.NotNil(details)
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("crawl", tel)

	return &Crawler{
		listing:   listing,
		fetcher:   NewFetcher(details, tel),
		catalogue: catalogue,
		opts:      opts.normalized(),
		tel:       tel,
		stop:      make(chan struct{}),
	}
}

// Stop asks the crawl to end at the next row, page or batch boundary, fetches
// already in flight are allowed to finish. It is safe to call from any goroutine.
func (c *Crawler) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Crawler) cancelled(ctx context.Context) bool {
	select {
	case <-c.stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// checkTriggers warns about trigger maps that will never match anything, they
// are still used as given.
func (c *Crawler) checkTriggers() {
	names := append([]string{c.opts.StartMap}, c.opts.StopMaps...)
	for _, name := range names {
		if name == "" || c.catalogue.Contains(name) {
			continue
		}
		suggestion, _ := c.catalogue.Suggest(name)
		c.tel.ReportWarning(report_crawler_trigger, "unknown map", name, "did you mean", suggestion)
	}
}

// Run crawls until a stop condition is met. It does not fail, every problem is
// either folded into Result.Failures or ends the crawl with a StopReason.
func (c *Crawler) Run(ctx context.Context) Result {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	c.checkTriggers()

	m := newMachine(c.opts.StartMap, c.opts.StopMaps)
	buffer := &mergeBuffer{}
	pages, reason := c.walk(ctx, m, buffer)

	result := buffer.result(reason, pages)
	span.SetAttributes(
		attribute.String("reason", reason.String()),
		attribute.Int("pages", pages),
		attribute.Int("rows", len(result.Rows)),
	)
	c.tel.ReportCount(report_crawler_rows, int64(len(result.Rows)))
	c.tel.ReportCount(report_crawler_failed, int64(len(result.Failures)))
	return result
}

func (c *Crawler) walk(ctx context.Context, m *machine, buffer *mergeBuffer) (int, StopReason) {
	pages := 0
	for page := 1; ; page++ {
		if c.cancelled(ctx) {
			return pages, StopCancelled
		}

		c.tel.ReportDebug("fetch listing", page)
		listing, err := c.listing.FetchListing(ctx, c.opts.GameType, page)
		if err != nil {
			if c.cancelled(ctx) {
				return pages, StopCancelled
			}
			c.tel.ReportBroken(report_crawler_listing, err, page)
			return pages, StopListingFailed
		}
		pages = page

		if len(listing.Rows) == 0 {
			c.tel.ReportDebug("empty listing page", page)
			return pages, StopNoMoreData
		}

		scan := m.scan(listing.Rows, func() bool { return c.cancelled(ctx) })
		if scan.started {
			c.tel.ReportDebug("start trigger observed", c.opts.StartMap, page)
		}
		if scan.unlinked > 0 {
			c.tel.ReportWarning(report_crawler_scan, "rows without detail link", page, scan.unlinked)
		}
		if scan.interrupted || c.cancelled(ctx) {
			return pages, StopCancelled
		}

		c.dispatch(ctx, page, scan.batch, buffer)

		if scan.triggered {
			c.tel.ReportDebug("stop trigger observed", page)
			return pages, StopTriggerReached
		}
		if !listing.HasNext {
			c.tel.ReportDebug("no next page", page)
			return pages, StopNoMoreData
		}
		if !c.wait(ctx) {
			return pages, StopCancelled
		}
	}
}

// dispatch fetches one page worth of matches and blocks until all of them are done.
func (c *Crawler) dispatch(ctx context.Context, page int, batch []MatchSummary, buffer *mergeBuffer) {
	if len(batch) == 0 {
		return
	}
	ctx, span := tracer.Start(ctx, "dispatch")
	defer span.End()
	span.SetAttributes(attribute.Int("page", page), attribute.Int("matches", len(batch)))

	c.tel.ReportDebug("dispatching detail fetches", page, len(batch))

	completed := make(chan FetchResult, len(batch))
	var group errgroup.Group
	group.SetLimit(c.opts.Workers)
	for _, summary := range batch {
		group.Go(func() error {
			completed <- c.fetcher.Fetch(ctx, summary)
			return nil
		})
	}
	_ = group.Wait()
	close(completed)

	gameType := metric.WithAttributes(attribute.String("game_type", c.opts.GameType))
	for result := range completed {
		if result.Failed() {
			failedCounter.Add(ctx, 1, gameType)
		} else {
			fetchedCounter.Add(ctx, 1, gameType)
		}
		buffer.add(result)
	}
}

func (c *Crawler) wait(ctx context.Context) bool {
	if c.opts.PageDelay == 0 {
		return !c.cancelled(ctx)
	}
	timer := time.NewTimer(c.opts.PageDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-c.stop:
		return false
	case <-ctx.Done():
		return false
	}
}
