package db

import (
	"context"
)

const insertRun = `-- name: InsertRun :one
insert into run (
    created_at, mode, report_date, stop_reason, pages,
    match_count, row_count, failure_count, csv_path, report_path
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
returning id
`

type InsertRunParams struct {
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

func (q *Queries) InsertRun(ctx context.Context, arg InsertRunParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertRun,
		arg.CreatedAt,
		arg.Mode,
		arg.ReportDate,
		arg.StopReason,
		arg.Pages,
		arg.MatchCount,
		arg.RowCount,
		arg.FailureCount,
		arg.CsvPath,
		arg.ReportPath,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getRun = `-- name: GetRun :one
select id, created_at, mode, report_date, stop_reason, pages,
    match_count, row_count, failure_count, csv_path, report_path
from run
where id = ?
`

func (q *Queries) GetRun(ctx context.Context, id int64) (Run, error) {
	row := q.db.QueryRowContext(ctx, getRun, id)
	var i Run
	err := row.Scan(
		&i.ID,
		&i.CreatedAt,
		&i.Mode,
		&i.ReportDate,
		&i.StopReason,
		&i.Pages,
		&i.MatchCount,
		&i.RowCount,
		&i.FailureCount,
		&i.CsvPath,
		&i.ReportPath,
	)
	return i, err
}

const listRuns = `-- name: ListRuns :many
select id, created_at, mode, report_date, stop_reason, pages,
    match_count, row_count, failure_count, csv_path, report_path
from run
order by created_at desc, id desc
limit ?
`

func (q *Queries) ListRuns(ctx context.Context, limit int64) ([]Run, error) {
	rows, err := q.db.QueryContext(ctx, listRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Run
	for rows.Next() {
		var i Run
		if err := rows.Scan(
			&i.ID,
			&i.CreatedAt,
			&i.Mode,
			&i.ReportDate,
			&i.StopReason,
			&i.Pages,
			&i.MatchCount,
			&i.RowCount,
			&i.FailureCount,
			&i.CsvPath,
			&i.ReportPath,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const pruneRuns = `-- name: PruneRuns :exec
delete from run
where id not in (
    select id from run
    order by created_at desc, id desc
    limit ?
)
`

func (q *Queries) PruneRuns(ctx context.Context, keep int64) error {
	_, err := q.db.ExecContext(ctx, pruneRuns, keep)
	return err
}
