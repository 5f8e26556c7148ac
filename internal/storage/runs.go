package storage

import (
	"context"
	"time"

	"sentinel/internal/errors"
)

// runTimeLayout sorts lexically in chronological order.
const runTimeLayout = "2006-01-02T15:04:05.000000Z"

// IndexRun records the outcome of one indexing pass.
type IndexRun struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"projectId"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
	FilesTotal    int       `json:"filesTotal"`
	FilesIndexed  int       `json:"filesIndexed"`
	FilesSkipped  int       `json:"filesSkipped"`
	FilesFailed   int       `json:"filesFailed"`
	Symbols       int       `json:"symbols"`
	Relationships int       `json:"relationships"`
	Canceled      bool      `json:"canceled"`
}

// Duration returns how long the run took.
func (r *IndexRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RecordIndexRun persists a finished run.
func (db *DB) RecordIndexRun(ctx context.Context, run IndexRun) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO index_runs (
			id, project_id, started_at, finished_at, files_total, files_indexed,
			files_skipped, files_failed, symbols, relationships, canceled
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.ProjectID, run.StartedAt.UTC().Format(runTimeLayout), run.FinishedAt.UTC().Format(runTimeLayout),
		run.FilesTotal, run.FilesIndexed, run.FilesSkipped, run.FilesFailed,
		run.Symbols, run.Relationships, run.Canceled)
	if err != nil {
		return errors.New(errors.StoreUnavailable, "failed to record index run", err)
	}
	return nil
}

// RecentIndexRuns returns up to limit runs of a project, newest first.
func (db *DB) RecentIndexRuns(ctx context.Context, projectID string, limit int) ([]IndexRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, project_id, started_at, finished_at, files_total, files_indexed,
			files_skipped, files_failed, symbols, relationships, canceled
		FROM index_runs
		WHERE project_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, errors.New(errors.StoreUnavailable, "failed to list index runs", err)
	}
	defer rows.Close()

	var out []IndexRun
	for rows.Next() {
		var r IndexRun
		var started, finished string
		if err := rows.Scan(&r.ID, &r.ProjectID, &started, &finished, &r.FilesTotal, &r.FilesIndexed,
			&r.FilesSkipped, &r.FilesFailed, &r.Symbols, &r.Relationships, &r.Canceled); err != nil {
			return nil, errors.New(errors.StoreUnavailable, "failed to scan index run", err)
		}
		r.StartedAt, _ = time.Parse(runTimeLayout, started)
		r.FinishedAt, _ = time.Parse(runTimeLayout, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CleanupIndexRuns deletes runs that started before cutoff and returns how
// many were removed.
func (db *DB) CleanupIndexRuns(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM index_runs WHERE started_at < ?`, cutoff.UTC().Format(runTimeLayout))
	if err != nil {
		return 0, errors.New(errors.StoreUnavailable, "failed to clean up index runs", err)
	}
	return res.RowsAffected()
}
