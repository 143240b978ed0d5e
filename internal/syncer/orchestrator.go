// Package syncer orchestrates rate-limited period synchronization: per
// period it pulls the source data, runs the aggregation pipelines and
// upserts the results, tolerating per-period failures.
package syncer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clarelia/finboard/internal/domain"
	"github.com/clarelia/finboard/internal/ledger"
	"github.com/clarelia/finboard/internal/payroll"
)

// SourceClient is the accounting source surface the orchestrator needs.
type SourceClient interface {
	FetchLedgerLines(ctx context.Context, from, to time.Time) ([]domain.LedgerLine, error)
	FetchPayrollOperations(ctx context.Context, periodKey string) ([]domain.RawOperation, error)
	FetchWorkedDayCounts(ctx context.Context, periodKey string, employeeNames []string) (map[string]int, error)
}

// PeriodStore persists period aggregates.
type PeriodStore interface {
	Upsert(agg domain.PeriodAggregate) error
}

// PayrollStore persists per-employee payroll aggregates.
type PayrollStore interface {
	UpsertPeriod(period domain.Period, employees []domain.PayrollEmployeeAggregate) error
}

// RunStore persists the sync run audit trail.
type RunStore interface {
	Append(run domain.SyncRun) error
}

// TreasuryPass recomputes the cumulative treasury balances of a year.
type TreasuryPass interface {
	RecomputeYear(year int) error
}

// Orchestrator drives a sync run over a set of periods. Periods are
// processed sequentially; a failing period is tallied and the run moves
// on to the next one. Only a failed precondition aborts a run.
type Orchestrator struct {
	client       SourceClient
	aggregator   *ledger.Aggregator
	payroll      *payroll.Classifier
	periodStore  PeriodStore
	payrollStore PayrollStore
	runStore     RunStore
	treasury     TreasuryPass
	delay        time.Duration
	log          zerolog.Logger
}

// NewOrchestrator creates a sync orchestrator. delay is the pause
// between consecutive periods, on top of the client's own rate limiting.
func NewOrchestrator(
	client SourceClient,
	aggregator *ledger.Aggregator,
	payrollClassifier *payroll.Classifier,
	periodStore PeriodStore,
	payrollStore PayrollStore,
	runStore RunStore,
	treasury TreasuryPass,
	delay time.Duration,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		client:       client,
		aggregator:   aggregator,
		payroll:      payrollClassifier,
		periodStore:  periodStore,
		payrollStore: payrollStore,
		runStore:     runStore,
		treasury:     treasury,
		delay:        delay,
		log:          log.With().Str("component", "sync_orchestrator").Logger(),
	}
}

// Run synchronizes the given periods and appends an audit record. The
// returned SyncRun reflects the tally; partial failure is not an error.
// Context cancellation stops issuing new period fetches, and the periods
// not reached are counted as failed.
func (o *Orchestrator) Run(ctx context.Context, periods []domain.Period, kind string) (*domain.SyncRun, error) {
	if err := o.checkPreconditions(); err != nil {
		return nil, err
	}

	run := domain.SyncRun{
		RunID:            uuid.New().String(),
		Kind:             kind,
		StartedAt:        time.Now().UTC(),
		PeriodsRequested: len(periods),
	}

	o.log.Info().
		Str("run_id", run.RunID).
		Str("kind", kind).
		Int("periods", len(periods)).
		Msg("Starting sync run")

	touchedYears := map[int]bool{}

	for i, period := range periods {
		if i > 0 && o.delay > 0 {
			select {
			case <-time.After(o.delay):
			case <-ctx.Done():
			}
		}

		if ctx.Err() != nil {
			run.PeriodsFailed += len(periods) - i
			o.log.Warn().
				Str("run_id", run.RunID).
				Int("remaining", len(periods)-i).
				Msg("Sync run cancelled")
			break
		}

		if err := o.syncPeriod(ctx, period); err != nil {
			run.PeriodsFailed++
			o.log.Error().
				Err(err).
				Str("run_id", run.RunID).
				Str("period", period.Key()).
				Msg("Period sync failed")
			continue
		}

		run.PeriodsSucceeded++
		touchedYears[period.Year] = true
	}

	// Recompute cumulative treasury balances for every year a period of
	// which was re-synced. In delta mode later balances depend on earlier
	// movements, so the pass runs strictly after the period loop.
	years := make([]int, 0, len(touchedYears))
	for year := range touchedYears {
		years = append(years, year)
	}
	sort.Ints(years)
	for _, year := range years {
		if err := o.treasury.RecomputeYear(year); err != nil {
			o.log.Error().
				Err(err).
				Str("run_id", run.RunID).
				Int("year", year).
				Msg("Treasury pass failed")
		}
	}

	run.DurationMs = time.Since(run.StartedAt).Milliseconds()

	if err := o.runStore.Append(run); err != nil {
		o.log.Error().Err(err).Str("run_id", run.RunID).Msg("Failed to append sync run record")
	}

	o.log.Info().
		Str("run_id", run.RunID).
		Int("succeeded", run.PeriodsSucceeded).
		Int("failed", run.PeriodsFailed).
		Int64("duration_ms", run.DurationMs).
		Msg("Sync run completed")

	return &run, nil
}

// checkPreconditions verifies the orchestrator is wired before any
// period is touched.
func (o *Orchestrator) checkPreconditions() error {
	switch {
	case o.client == nil:
		return fmt.Errorf("%w: source client not configured", domain.ErrPreconditionFailed)
	case o.periodStore == nil || o.payrollStore == nil || o.runStore == nil:
		return fmt.Errorf("%w: store not configured", domain.ErrPreconditionFailed)
	case o.aggregator == nil || o.payroll == nil || o.treasury == nil:
		return fmt.Errorf("%w: pipeline not configured", domain.ErrPreconditionFailed)
	}
	return nil
}

// syncPeriod fetches, aggregates and persists one period. Either the
// whole period lands or the period is reported failed; the stores never
// see partial aggregates.
func (o *Orchestrator) syncPeriod(ctx context.Context, period domain.Period) error {
	from, to := period.Bounds()

	lines, err := o.client.FetchLedgerLines(ctx, from, to)
	if err != nil {
		return fmt.Errorf("ledger fetch for %s: %w", period.Key(), err)
	}

	agg := o.aggregator.Aggregate(period, lines)
	if err := o.periodStore.Upsert(agg); err != nil {
		return fmt.Errorf("period upsert for %s: %w", period.Key(), err)
	}

	ops, err := o.client.FetchPayrollOperations(ctx, period.Key())
	if err != nil {
		return fmt.Errorf("payroll fetch for %s: %w", period.Key(), err)
	}

	var workedDays map[string]int
	if names := employeeNames(ops); len(names) > 0 {
		workedDays, err = o.client.FetchWorkedDayCounts(ctx, period.Key(), names)
		if err != nil {
			// Worked day counts are supplementary. Keep the period.
			o.log.Warn().
				Err(err).
				Str("period", period.Key()).
				Msg("Worked day counts unavailable")
			workedDays = nil
		}
	}

	employees := o.payroll.AggregatePeriod(period.Year, ops, workedDays)
	if err := o.payrollStore.UpsertPeriod(period, employees); err != nil {
		return fmt.Errorf("payroll upsert for %s: %w", period.Key(), err)
	}

	o.log.Debug().
		Str("period", period.Key()).
		Int("ledger_lines", len(lines)).
		Int("employees", len(employees)).
		Msg("Period synced")

	return nil
}

// employeeNames collects the distinct attributed employee names of a
// period's operations, in first-seen order.
func employeeNames(ops []domain.RawOperation) []string {
	seen := map[string]bool{}
	var names []string
	for _, op := range ops {
		if op.EmployeeName == "" || seen[op.EmployeeName] {
			continue
		}
		seen[op.EmployeeName] = true
		names = append(names, op.EmployeeName)
	}
	return names
}
