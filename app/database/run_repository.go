package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ RunRepository = (*RunRepositoryImpl)(nil)

// Timestamps are stored as RFC 3339 UTC text; lexicographic order then
// matches chronological order.
const timeLayout = time.RFC3339

// RunRepositoryImpl handles database operations for run history
type RunRepositoryImpl struct {
	db *DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *DB) *RunRepositoryImpl {
	return &RunRepositoryImpl{db: db}
}

// RecordRun stores one completed synchronization run
func (r *RunRepositoryImpl) RecordRun(run SyncRun) error {
	_, err := r.db.Exec(`
		INSERT INTO sync_runs (
			started_at, finished_at, total_events,
			created_count, updated_count, deleted_count, failed_count,
			skipped_rows, skipped_unmanaged
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
		run.TotalEvents, run.Created, run.Updated, run.Deleted, run.Failed,
		run.SkippedRows, run.SkippedUnmanaged)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	return nil
}

// GetLatestRun returns the most recent run, or nil when none is recorded
func (r *RunRepositoryImpl) GetLatestRun() (*SyncRun, error) {
	var run SyncRun
	var startedAt, finishedAt string
	err := r.db.QueryRow(`
		SELECT id, started_at, finished_at, total_events,
		       created_count, updated_count, deleted_count, failed_count,
		       skipped_rows, skipped_unmanaged
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT 1
	`).Scan(&run.ID, &startedAt, &finishedAt, &run.TotalEvents,
		&run.Created, &run.Updated, &run.Deleted, &run.Failed,
		&run.SkippedRows, &run.SkippedUnmanaged)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finishedAt); err != nil {
		return nil, fmt.Errorf("failed to parse finished_at: %w", err)
	}

	return &run, nil
}

// GetTotals aggregates operation counts across all recorded runs
func (r *RunRepositoryImpl) GetTotals() (RunTotals, error) {
	var totals RunTotals
	err := r.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(created_count), 0),
		       COALESCE(SUM(updated_count), 0),
		       COALESCE(SUM(deleted_count), 0),
		       COALESCE(SUM(failed_count), 0)
		FROM sync_runs
	`).Scan(&totals.Runs, &totals.Created, &totals.Updated, &totals.Deleted, &totals.Failed)
	if err != nil {
		return totals, fmt.Errorf("failed to get run totals: %w", err)
	}

	return totals, nil
}
