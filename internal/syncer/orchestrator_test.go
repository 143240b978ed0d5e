package syncer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarelia/finboard/internal/domain"
	"github.com/clarelia/finboard/internal/ledger"
	"github.com/clarelia/finboard/internal/payroll"
)

type mockSource struct {
	lines        map[string][]domain.LedgerLine
	ops          map[string][]domain.RawOperation
	workedDays   map[string]map[string]int
	failLedger   map[string]error
	failWorkDays error
	fetchCount   int
}

func (m *mockSource) FetchLedgerLines(_ context.Context, from, _ time.Time) ([]domain.LedgerLine, error) {
	m.fetchCount++
	key := fmt.Sprintf("%04d-%02d", from.Year(), int(from.Month()))
	if err := m.failLedger[key]; err != nil {
		return nil, err
	}
	return m.lines[key], nil
}

func (m *mockSource) FetchPayrollOperations(_ context.Context, periodKey string) ([]domain.RawOperation, error) {
	return m.ops[periodKey], nil
}

func (m *mockSource) FetchWorkedDayCounts(_ context.Context, periodKey string, _ []string) (map[string]int, error) {
	if m.failWorkDays != nil {
		return nil, m.failWorkDays
	}
	return m.workedDays[periodKey], nil
}

type mockPeriodStore struct {
	upserts []domain.PeriodAggregate
	failOn  string
}

func (m *mockPeriodStore) Upsert(agg domain.PeriodAggregate) error {
	if m.failOn == agg.PeriodID {
		return domain.ErrStoreWriteFailed
	}
	m.upserts = append(m.upserts, agg)
	return nil
}

type mockPayrollStore struct {
	upserts map[string][]domain.PayrollEmployeeAggregate
}

func (m *mockPayrollStore) UpsertPeriod(period domain.Period, employees []domain.PayrollEmployeeAggregate) error {
	if m.upserts == nil {
		m.upserts = map[string][]domain.PayrollEmployeeAggregate{}
	}
	m.upserts[period.Key()] = employees
	return nil
}

type mockRunStore struct {
	runs []domain.SyncRun
}

func (m *mockRunStore) Append(run domain.SyncRun) error {
	m.runs = append(m.runs, run)
	return nil
}

type mockTreasury struct {
	years []int
}

func (m *mockTreasury) RecomputeYear(year int) error {
	m.years = append(m.years, year)
	return nil
}

func newTestOrchestrator(source *mockSource, periodStore *mockPeriodStore, delay time.Duration) (*Orchestrator, *mockPayrollStore, *mockRunStore, *mockTreasury) {
	aggregator := ledger.NewAggregator(ledger.NewClassifier(ledger.DefaultRules()))
	resolver := payroll.NewRoleResolver(payroll.Rosters{}, 2023, "Fielded")
	classifier := payroll.NewClassifier(payroll.DefaultAccountSets(), resolver)
	payrollStore := &mockPayrollStore{}
	runStore := &mockRunStore{}
	treasury := &mockTreasury{}

	o := NewOrchestrator(source, aggregator, classifier,
		periodStore, payrollStore, runStore, treasury, delay, zerolog.Nop())
	return o, payrollStore, runStore, treasury
}

func monthPeriods(year int, months ...time.Month) []domain.Period {
	periods := make([]domain.Period, 0, len(months))
	for _, m := range months {
		periods = append(periods, domain.Period{Year: year, Month: m})
	}
	return periods
}

func TestOrchestrator_PreconditionFailure(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(&mockSource{}, &mockPeriodStore{}, 0)
	o.client = nil

	run, err := o.Run(context.Background(), monthPeriods(2024, time.January), "manual")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
	assert.Nil(t, run)
}

func TestOrchestrator_HappyPath(t *testing.T) {
	source := &mockSource{
		lines: map[string][]domain.LedgerLine{
			"2024-01": {{AccountID: "706000", Credit: decimal.NewFromInt(1000)}},
			"2024-02": {{AccountID: "601000", Debit: decimal.NewFromInt(300)}},
		},
		ops: map[string][]domain.RawOperation{
			"2024-01": {{AccountID: "421000", EmployeeName: "MARIE DUPONT", Credit: decimal.NewFromInt(2100)}},
		},
		workedDays: map[string]map[string]int{
			"2024-01": {"MARIE DUPONT": 20},
		},
	}
	periodStore := &mockPeriodStore{}
	o, payrollStore, runStore, treasury := newTestOrchestrator(source, periodStore, 0)

	run, err := o.Run(context.Background(), monthPeriods(2024, time.January, time.February), "manual")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, 2, run.PeriodsRequested)
	assert.Equal(t, 2, run.PeriodsSucceeded)
	assert.Equal(t, 0, run.PeriodsFailed)
	assert.NotEmpty(t, run.RunID)

	require.Len(t, periodStore.upserts, 2)
	assert.True(t, periodStore.upserts[0].RevenueTotal.Equal(decimal.NewFromInt(1000)))

	employees := payrollStore.upserts["2024-01"]
	require.Len(t, employees, 1)
	assert.Equal(t, "MARIE DUPONT", employees[0].EmployeeName)
	assert.Equal(t, 20, employees[0].WorkedDays)

	assert.Equal(t, []int{2024}, treasury.years)

	require.Len(t, runStore.runs, 1)
	assert.Equal(t, run.RunID, runStore.runs[0].RunID)
}

func TestOrchestrator_ContinuesPastFailedPeriod(t *testing.T) {
	source := &mockSource{
		failLedger: map[string]error{
			"2024-05": domain.ErrSourceUnavailable,
		},
	}
	periodStore := &mockPeriodStore{}
	o, _, runStore, _ := newTestOrchestrator(source, periodStore, 0)

	periods := domain.PeriodRange(
		domain.Period{Year: 2024, Month: time.January},
		domain.Period{Year: 2024, Month: time.December},
	)
	run, err := o.Run(context.Background(), periods, "scheduled")
	require.NoError(t, err)
	assert.Equal(t, 12, run.PeriodsRequested)
	assert.Equal(t, 11, run.PeriodsSucceeded)
	assert.Equal(t, 1, run.PeriodsFailed)
	assert.Len(t, periodStore.upserts, 11)
	require.Len(t, runStore.runs, 1)
}

func TestOrchestrator_StoreFailureCountsAsFailed(t *testing.T) {
	source := &mockSource{}
	periodStore := &mockPeriodStore{failOn: "2024-02"}
	o, _, _, treasury := newTestOrchestrator(source, periodStore, 0)

	run, err := o.Run(context.Background(), monthPeriods(2024, time.January, time.February), "manual")
	require.NoError(t, err)
	assert.Equal(t, 1, run.PeriodsSucceeded)
	assert.Equal(t, 1, run.PeriodsFailed)
	// The treasury pass still runs for the year touched by the period
	// that succeeded.
	assert.Equal(t, []int{2024}, treasury.years)
}

func TestOrchestrator_CancellationStopsIssuingFetches(t *testing.T) {
	source := &mockSource{}
	periodStore := &mockPeriodStore{}
	o, _, runStore, _ := newTestOrchestrator(source, periodStore, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := o.Run(ctx, monthPeriods(2024, time.January, time.February, time.March), "manual")
	require.NoError(t, err)
	assert.Equal(t, 0, run.PeriodsSucceeded)
	assert.Equal(t, 3, run.PeriodsFailed)
	assert.Equal(t, 0, source.fetchCount)
	// The audit record is still appended for a cancelled run.
	require.Len(t, runStore.runs, 1)
}

func TestOrchestrator_WorkedDayFailureIsNotFatal(t *testing.T) {
	source := &mockSource{
		ops: map[string][]domain.RawOperation{
			"2024-01": {{AccountID: "421000", EmployeeName: "MARIE DUPONT", Credit: decimal.NewFromInt(2100)}},
		},
		failWorkDays: errors.New("worked days endpoint down"),
	}
	o, payrollStore, _, _ := newTestOrchestrator(source, &mockPeriodStore{}, 0)

	run, err := o.Run(context.Background(), monthPeriods(2024, time.January), "manual")
	require.NoError(t, err)
	assert.Equal(t, 1, run.PeriodsSucceeded)

	employees := payrollStore.upserts["2024-01"]
	require.Len(t, employees, 1)
	assert.Equal(t, 0, employees[0].WorkedDays)
}

func TestOrchestrator_TreasuryPassPerTouchedYear(t *testing.T) {
	source := &mockSource{}
	o, _, _, treasury := newTestOrchestrator(source, &mockPeriodStore{}, 0)

	periods := []domain.Period{
		{Year: 2024, Month: time.December},
		{Year: 2023, Month: time.November},
		{Year: 2024, Month: time.January},
	}
	_, err := o.Run(context.Background(), periods, "manual")
	require.NoError(t, err)
	// Chronological and deduplicated.
	assert.Equal(t, []int{2023, 2024}, treasury.years)
}
