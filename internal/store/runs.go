package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clarelia/finboard/internal/domain"
)

// RunRepository persists the append-only sync run audit trail. Records are
// never updated or deleted.
type RunRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRunRepository creates a sync run repository.
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:  db,
		log: log.With().Str("repo", "sync_runs").Logger(),
	}
}

// Append records a completed sync run.
func (r *RunRepository) Append(run domain.SyncRun) error {
	_, err := r.db.Exec(`
		INSERT INTO sync_runs (
			run_id, kind, started_at, periods_requested,
			periods_succeeded, periods_failed, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID,
		run.Kind,
		run.StartedAt.Unix(),
		run.PeriodsRequested,
		run.PeriodsSucceeded,
		run.PeriodsFailed,
		run.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to append sync run %s: %w", run.RunID, err)
	}
	return nil
}

// List returns the most recent sync runs, newest first.
func (r *RunRepository) List(limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT run_id, kind, started_at, periods_requested,
		       periods_succeeded, periods_failed, duration_ms
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun
	for rows.Next() {
		var run domain.SyncRun
		var startedAt int64
		if err := rows.Scan(&run.RunID, &run.Kind, &startedAt, &run.PeriodsRequested,
			&run.PeriodsSucceeded, &run.PeriodsFailed, &run.DurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		run.StartedAt = time.Unix(startedAt, 0).UTC()
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync runs: %w", err)
	}
	return runs, nil
}
