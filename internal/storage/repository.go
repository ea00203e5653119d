package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ensemble/internal/core"

	_ "modernc.org/sqlite"
)

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 20

// SQLiteRepository keeps the history of report runs.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// RecordRun stores one report run. Recording the same ID twice replaces
// the earlier entry.
func (r *SQLiteRepository) RecordRun(ctx context.Context, run core.ReportRun) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO report_runs (id, title, row_count, total_fine, started_at, finished_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			row_count = excluded.row_count,
			total_fine = excluded.total_fine,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			error = excluded.error`,
		run.ID, run.Title, run.Rows, run.TotalFine,
		run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.Error)
	if err != nil {
		return fmt.Errorf("insert report run: %w", err)
	}

	slog.DebugContext(ctx, "Report run recorded",
		"run_id", run.ID,
		"rows", run.Rows,
		"failed", run.Error != "")
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]core.ReportRun, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, row_count, total_fine, started_at, finished_at, error
		FROM report_runs
		ORDER BY started_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query report runs: %w", err)
	}
	defer rows.Close()

	var runs []core.ReportRun
	for rows.Next() {
		var (
			run               core.ReportRun
			started, finished int64
		)
		if err := rows.Scan(&run.ID, &run.Title, &run.Rows, &run.TotalFine, &started, &finished, &run.Error); err != nil {
			return nil, fmt.Errorf("scan report run: %w", err)
		}
		run.StartedAt = time.UnixMilli(started).UTC()
		run.FinishedAt = time.UnixMilli(finished).UTC()
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report runs: %w", err)
	}
	return runs, nil
}

// LastRun returns the most recent run, or false when none was recorded.
func (r *SQLiteRepository) LastRun(ctx context.Context) (core.ReportRun, bool, error) {
	runs, err := r.ListRuns(ctx, 1)
	if err != nil {
		return core.ReportRun{}, false, err
	}
	if len(runs) == 0 {
		return core.ReportRun{}, false, nil
	}
	return runs[0], true, nil
}
