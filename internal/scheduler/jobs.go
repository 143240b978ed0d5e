package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/clarelia/finboard/internal/domain"
	"github.com/clarelia/finboard/internal/syncer"
)

// TrailingSyncJob re-synchronizes the trailing window of periods ending
// with the current month. Recent periods keep changing upstream as
// entries are posted late; re-syncing a window instead of just the
// current month picks those corrections up.
type TrailingSyncJob struct {
	orchestrator *syncer.Orchestrator
	window       int
	timeout      time.Duration
	log          zerolog.Logger
}

// NewTrailingSyncJob creates the scheduled sync job. window is the number
// of trailing periods to re-sync on each run.
func NewTrailingSyncJob(orchestrator *syncer.Orchestrator, window int, log zerolog.Logger) *TrailingSyncJob {
	return &TrailingSyncJob{
		orchestrator: orchestrator,
		window:       window,
		timeout:      30 * time.Minute,
		log:          log.With().Str("job", "trailing_sync").Logger(),
	}
}

// Name implements Job.
func (j *TrailingSyncJob) Name() string {
	return "trailing_sync"
}

// Run implements Job.
func (j *TrailingSyncJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	periods := domain.TrailingPeriods(time.Now().UTC(), j.window)
	run, err := j.orchestrator.Run(ctx, periods, "scheduled")
	if err != nil {
		return err
	}

	j.log.Info().
		Str("run_id", run.RunID).
		Int("succeeded", run.PeriodsSucceeded).
		Int("failed", run.PeriodsFailed).
		Msg("Scheduled sync finished")

	return nil
}

// BackupJob wraps a backup service as a scheduled job.
type BackupJob struct {
	backup  BackupService
	timeout time.Duration
}

// BackupService is the backup surface the job needs.
type BackupService interface {
	BackupNow(ctx context.Context) error
}

// NewBackupJob creates the scheduled backup job.
func NewBackupJob(backup BackupService) *BackupJob {
	return &BackupJob{backup: backup, timeout: 15 * time.Minute}
}

// Name implements Job.
func (j *BackupJob) Name() string {
	return "database_backup"
}

// Run implements Job.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	return j.backup.BackupNow(ctx)
}
