// Package pipeline runs a whole session: login, crawl, CSV export, report and
// history record.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"crazycar-stats/internal/components/assert"
	"crazycar-stats/internal/components/captcha"
	"crazycar-stats/internal/components/chrono"
	"crazycar-stats/internal/components/telemetry"
	"crazycar-stats/internal/config"
	"crazycar-stats/internal/crawl"
	"crazycar-stats/internal/history"
	"crazycar-stats/internal/maporder"
	"crazycar-stats/internal/report"
	"crazycar-stats/internal/tabular"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	report_pipeline_failures = "pipeline.failures"
	report_pipeline_history  = "pipeline.history"
)

// StopReasonImported marks history runs built from an existing export.
const StopReasonImported = "imported"

var tracer = otel.Tracer("crazycar.internal.pipeline")

// Session is an authenticated channel to the site.
type Session interface {
	crawl.ListingSource
	crawl.DetailSource
	Login(ctx context.Context, phone, password string, recognizer captcha.Recognizer) error
}

// HistoryStore is where finished runs are recorded.
type HistoryStore interface {
	Record(ctx context.Context, run history.Run) (history.Run, error)
}

type Outcome struct {
	Crawl      crawl.Result
	Report     report.Report
	CsvPath    string
	ReportPath string
	Run        history.Run
}

type Pipeline struct {
	cfg        config.Config
	session    Session
	recognizer captcha.Recognizer
	history    HistoryStore
	engine     *report.Engine
	clock      chrono.API
	tel        telemetry.API

	mu      sync.Mutex
	crawler *crawl.Crawler
	stopped bool
}

// New creates a pipeline, store may be nil in which case runs are not recorded.
func New(
	cfg config.Config,
	session Session,
	recognizer captcha.Recognizer,
	store HistoryStore,
	clock chrono.API,
	tel telemetry.API,
) *Pipeline {
	assert.NotNil(recognizer)
	assert.NotNil(clock)
	assert.NotNil(tel)

	return &Pipeline{
		cfg:        cfg,
		session:    session,
		recognizer: recognizer,
		history:    store,
		engine:     report.NewEngine(maporder.Official(), cfg.EngineOptions(), clock, tel),
		clock:      clock,
		tel:        telemetry.NewScopedAPI("pipeline", tel),
	}
}

// Stop ends the crawl early, whatever was collected still makes it into the report.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.crawler != nil {
		p.crawler.Stop()
	}
}

func (p *Pipeline) newCrawler() *crawl.Crawler {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.crawler = crawl.NewCrawler(p.session, p.session, maporder.Official(), p.cfg.CrawlOptions(), p.tel)
	if p.stopped {
		p.crawler.Stop()
	}
	return p.crawler
}

// Run logs in and crawls. A failed login is returned as is (it wraps
// ckfksc.ErrLoginFailed for the real site) and a crawl that collected nothing
// returns report.ErrNoData, everything else yields an Outcome.
func (p *Pipeline) Run(ctx context.Context) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	assert.NotNil(p.session)

	err := p.session.Login(ctx, p.cfg.Account.Phone, p.cfg.Account.Password, p.recognizer)
	if err != nil {
		return Outcome{}, fmt.Errorf("login: %w", err)
	}

	result := p.newCrawler().Run(ctx)
	span.SetAttributes(
		attribute.String("reason", result.Reason.String()),
		attribute.Int("rows", len(result.Rows)),
	)
	if len(result.Failures) > 0 {
		p.tel.ReportWarning(report_pipeline_failures, result.FailuresErr())
	}
	if len(result.Rows) == 0 {
		return Outcome{Crawl: result}, report.ErrNoData
	}

	csvPath, err := tabular.WriteFile(p.cfg.DataDir, result.Rows)
	if err != nil {
		return Outcome{Crawl: result}, fmt.Errorf("export: %w", err)
	}

	outcome, err := p.finish(ctx, result.Rows, history.Run{
		StopReason: result.Reason.String(),
		Pages:      result.Pages,
		Matches:    result.Matches,
		Failures:   len(result.Failures),
		CsvPath:    csvPath,
	})
	outcome.Crawl = result
	return outcome, err
}

// ReportFile builds a report out of an existing export, like Run does after a crawl.
func (p *Pipeline) ReportFile(ctx context.Context, csvPath string) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "ReportFile")
	defer span.End()

	rows, err := tabular.ReadFile(csvPath)
	if err != nil {
		return Outcome{}, err
	}
	if len(rows) == 0 {
		return Outcome{}, report.ErrNoData
	}

	return p.finish(ctx, rows, history.Run{
		StopReason: StopReasonImported,
		Matches:    int(rows[len(rows)-1].Sequence),
		CsvPath:    csvPath,
	})
}

func (p *Pipeline) finish(ctx context.Context, rows []crawl.MatchRow, run history.Run) (Outcome, error) {
	built, err := p.engine.Build(ctx, rows)
	if err != nil {
		return Outcome{}, err
	}

	reportPath, err := WriteReport(p.cfg.DataDir, built, p.clock.Now())
	if err != nil {
		return Outcome{Report: built, CsvPath: run.CsvPath}, fmt.Errorf("write report: %w", err)
	}

	run.Mode = built.Mode
	run.Date = built.Date
	run.Rows = len(rows)
	run.ReportPath = reportPath
	if p.history != nil {
		recorded, err := p.history.Record(ctx, run)
		if err != nil {
			p.tel.ReportWarning(report_pipeline_history, err)
		} else {
			run = recorded
		}
	}

	return Outcome{
		Report:     built,
		CsvPath:    run.CsvPath,
		ReportPath: reportPath,
		Run:        run,
	}, nil
}

// ReportFileName is "Report_<date>_<unix seconds>.json".
func ReportFileName(date string, at time.Time) string {
	safe := strings.NewReplacer(":", "-", " ", "_", "/", "-").Replace(date)
	return fmt.Sprintf("Report_%s_%d.json", safe, at.Unix())
}

// WriteReport saves the payload for an external renderer.
func WriteReport(dir string, r report.Report, at time.Time) (string, error) {
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return "", err
	}
	contents, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ReportFileName(r.Date, at))
	err = os.WriteFile(path, contents, 0644)
	if err != nil {
		return "", err
	}
	return path, nil
}
