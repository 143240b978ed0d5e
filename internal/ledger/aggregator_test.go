package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarelia/finboard/internal/domain"
)

var testPeriod = domain.Period{Year: 2024, Month: time.March}

func newTestAggregator() *Aggregator {
	return NewAggregator(NewClassifier(DefaultRules()))
}

func TestAggregator_EmptyLineSet(t *testing.T) {
	agg := newTestAggregator().Aggregate(testPeriod, nil)

	assert.Equal(t, "2024-03", agg.PeriodID)
	assert.Equal(t, 2024, agg.Year)
	assert.Equal(t, 3, agg.Ordinal)
	assert.True(t, agg.RevenueTotal.IsZero())
	assert.True(t, agg.ExpenseTotal.IsZero())
	assert.True(t, agg.PayrollExpenseTotal.IsZero())
	assert.True(t, agg.NetResult.IsZero())
	assert.True(t, agg.TreasuryBalance.IsZero())
	for _, bucket := range domain.Buckets {
		assert.Empty(t, agg.Breakdowns[bucket])
	}
}

func TestAggregator_NetResultInvariant(t *testing.T) {
	lines := []domain.LedgerLine{
		line("706000", 0, 1200),
		line("707000", 0, 300),
		line("606000", 450, 0),
		line("641000", 800, 0), // payroll, must not affect net result
	}

	agg := newTestAggregator().Aggregate(testPeriod, lines)

	assert.True(t, agg.RevenueTotal.Equal(decimal.NewFromInt(1500)))
	assert.True(t, agg.ExpenseTotal.Equal(decimal.NewFromInt(450)))
	assert.True(t, agg.PayrollExpenseTotal.Equal(decimal.NewFromInt(800)))
	assert.True(t, agg.NetResult.Equal(agg.RevenueTotal.Sub(agg.ExpenseTotal)))
}

func TestAggregator_BreakdownMergesByAccount(t *testing.T) {
	lines := []domain.LedgerLine{
		line("706000", 0, 100),
		line("706000", 0, 250),
		line("707000", 0, 50),
	}

	agg := newTestAggregator().Aggregate(testPeriod, lines)

	entries := agg.Breakdowns[domain.BucketRevenue]
	require.Len(t, entries, 2)
	assert.Equal(t, "706000", entries[0].AccountID)
	assert.True(t, entries[0].Amount.Equal(decimal.NewFromInt(350)))
	assert.Equal(t, "707000", entries[1].AccountID)
	assert.True(t, entries[1].Amount.Equal(decimal.NewFromInt(50)))
}

func TestAggregator_BreakdownCompleteness(t *testing.T) {
	lines := []domain.LedgerLine{
		line("601000", 100, 0),
		line("602000", 80, 20),
		line("606000", 40, 0),
		line("601000", 30, 10),
	}

	agg := newTestAggregator().Aggregate(testPeriod, lines)

	sum := decimal.Zero
	for _, entry := range agg.Breakdowns[domain.BucketExpense] {
		sum = sum.Add(entry.Amount)
	}
	assert.True(t, sum.Equal(agg.ExpenseTotal), "breakdown sum %s != total %s", sum, agg.ExpenseTotal)
}

func TestAggregator_UnknownAccountsDropped(t *testing.T) {
	lines := []domain.LedgerLine{
		line("411000", 999, 0), // third-party account, no rule
		line("706000", 0, 100),
	}

	agg := newTestAggregator().Aggregate(testPeriod, lines)

	assert.True(t, agg.RevenueTotal.Equal(decimal.NewFromInt(100)))
	assert.True(t, agg.ExpenseTotal.IsZero())
}

func TestAggregator_Deterministic(t *testing.T) {
	lines := []domain.LedgerLine{
		line("707000", 0, 10),
		line("706000", 0, 20),
		line("606000", 5, 0),
		line("512000", 100, 40),
	}

	first := newTestAggregator().Aggregate(testPeriod, lines)
	second := newTestAggregator().Aggregate(testPeriod, lines)

	assert.Equal(t, first, second)
}
