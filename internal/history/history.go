// Package history keeps a record of every report the pipeline produced.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"crazycar-stats/internal/components/assert"
	"crazycar-stats/internal/components/chrono"
	"crazycar-stats/internal/history/db"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("history: run not found")

// DefaultKeep is how many runs are kept when no limit is configured.
const DefaultKeep = 200

type Run struct {
	ID         int64
	CreatedAt  time.Time
	Mode       string
	Date       string
	StopReason string
	Pages      int
	Matches    int
	Rows       int
	Failures   int
	CsvPath    string
	ReportPath string
}

type Store struct {
	conn   *sql.DB
	qry    *db.Queries
	makeTx db.MakeTx
	clock  chrono.API
	keep   int
}

// Open opens (or creates) the store at path, ":memory:" gives a throwaway store.
// Runs beyond the newest `keep` are pruned as new ones are recorded.
func Open(path string, keep int, clock chrono.API) (*Store, error) {
	assert.NotNil(clock)
	if keep <= 0 {
		keep = DefaultKeep
	}

	dsn := path
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// a single connection keeps an in-memory database alive and serializes writers
	conn.SetMaxOpenConns(1)

	_, err = conn.Exec(db.Schema)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{
		conn:   conn,
		qry:    db.New(conn),
		makeTx: db.NewMakeTx(conn),
		clock:  clock,
		keep:   keep,
	}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// Record saves run and returns it with its ID and CreatedAt filled in.
func (s *Store) Record(ctx context.Context, run Run) (Run, error) {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.clock.Now()
	}

	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return Run{}, fmt.Errorf("make tx: %w", err)
	}
	defer discard()

	id, err := tx.InsertRun(ctx, db.InsertRunParams{
		CreatedAt:    run.CreatedAt.Unix(),
		Mode:         run.Mode,
		ReportDate:   run.Date,
		StopReason:   run.StopReason,
		Pages:        int64(run.Pages),
		MatchCount:   int64(run.Matches),
		RowCount:     int64(run.Rows),
		FailureCount: int64(run.Failures),
		CsvPath:      run.CsvPath,
		ReportPath:   run.ReportPath,
	})
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	err = tx.PruneRuns(ctx, int64(s.keep))
	if err != nil {
		return Run{}, fmt.Errorf("prune runs: %w", err)
	}
	err = commit()
	if err != nil {
		return Run{}, err
	}

	run.ID = id
	run.CreatedAt = time.Unix(run.CreatedAt.Unix(), 0).In(s.clock.Location())
	return run, nil
}

// List returns up to limit runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = s.keep
	}
	rows, err := s.qry.ListRuns(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	out := make([]Run, len(rows))
	for i, row := range rows {
		out[i] = s.fromRow(row)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id int64) (Run, error) {
	row, err := s.qry.GetRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, err
	}
	return s.fromRow(row), nil
}

func (s *Store) fromRow(row db.Run) Run {
	return Run{
		ID:         row.ID,
		CreatedAt:  time.Unix(row.CreatedAt, 0).In(s.clock.Location()),
		Mode:       row.Mode,
		Date:       row.ReportDate,
		StopReason: row.StopReason,
		Pages:      int(row.Pages),
		Matches:    int(row.MatchCount),
		Rows:       int(row.RowCount),
		Failures:   int(row.FailureCount),
		CsvPath:    row.CsvPath,
		ReportPath: row.ReportPath,
	}
}
