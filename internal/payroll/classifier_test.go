package payroll

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarelia/finboard/internal/domain"
)

func newTestClassifier() *Classifier {
	return NewClassifier(DefaultAccountSets(), newTestResolver())
}

func op(accountID, employee string, debit int64) domain.RawOperation {
	return domain.RawOperation{
		AccountID:    accountID,
		EmployeeName: employee,
		ContractID:   "c1",
		Debit:        decimal.NewFromInt(debit),
	}
}

func TestClassify_CategoriesOverlap(t *testing.T) {
	c := newTestClassifier()

	// 645000 is contribution, gross cost and charge at once.
	m := c.Classify(op("645000", "a", 100))
	assert.True(t, m.Contribution)
	assert.True(t, m.GrossCost)
	assert.True(t, m.Charge)
	assert.False(t, m.Tier)
	assert.False(t, m.Bonus)

	// The bonus account is also a gross-cost account.
	m = c.Classify(op("641300", "a", 100))
	assert.True(t, m.Bonus)
	assert.True(t, m.GrossCost)
	assert.False(t, m.Contribution)
}

func TestAggregatePeriod_Totals(t *testing.T) {
	c := newTestClassifier()

	ops := []domain.RawOperation{
		op("421000", "Marie Dupont", 2100), // net pay -> salary paid
		op("641000", "Marie Dupont", 3000), // gross salary -> gross cost
		op("645000", "Marie Dupont", 1200), // employer contribution
		op("641300", "Marie Dupont", 500),  // bonus (also gross cost)
	}

	result := c.AggregatePeriod(2024, ops, nil)
	require.Len(t, result, 1)

	agg := result[0]
	assert.True(t, agg.SalaryPaid.Equal(decimal.NewFromInt(2100)))
	assert.True(t, agg.TotalBonuses.Equal(decimal.NewFromInt(500)))
	assert.True(t, agg.TotalContributions.Equal(decimal.NewFromInt(1200)))
	assert.True(t, agg.TotalGrossCost.Equal(decimal.NewFromInt(4700)))
	assert.Len(t, agg.Operations, 4)
}

func TestAggregatePeriod_AmountUsesNonzeroSide(t *testing.T) {
	c := newTestClassifier()

	creditOp := domain.RawOperation{
		AccountID:    "421000",
		EmployeeName: "Marie Dupont",
		Credit:       decimal.NewFromInt(1800),
	}

	result := c.AggregatePeriod(2024, []domain.RawOperation{creditOp}, nil)
	require.Len(t, result, 1)
	assert.True(t, result[0].SalaryPaid.Equal(decimal.NewFromInt(1800)))
}

func TestAggregatePeriod_UnattributedDropped(t *testing.T) {
	c := newTestClassifier()

	ops := []domain.RawOperation{
		op("641000", "", 9999), // no employee identity
		op("641000", "Marie Dupont", 100),
	}

	result := c.AggregatePeriod(2024, ops, nil)
	require.Len(t, result, 1)
	assert.Equal(t, "Marie Dupont", result[0].EmployeeName)
}

func TestAggregatePeriod_SeparateContracts(t *testing.T) {
	c := newTestClassifier()

	first := op("641000", "Marie Dupont", 100)
	second := op("641000", "Marie Dupont", 200)
	second.ContractID = "c2"

	result := c.AggregatePeriod(2024, []domain.RawOperation{first, second}, nil)
	require.Len(t, result, 2)
	assert.Equal(t, "c1", result[0].ContractID)
	assert.Equal(t, "c2", result[1].ContractID)
}

func TestAggregatePeriod_RoleAndWorkedDays(t *testing.T) {
	c := newTestClassifier()

	ops := []domain.RawOperation{op("641000", "Marie Dupont", 100)}
	workedDays := map[string]int{"Marie Dupont": 19}

	result := c.AggregatePeriod(2020, ops, workedDays)
	require.Len(t, result, 1)
	// Pre-cutover: roster lookup (Marie Dupont is on the fielded roster).
	assert.Equal(t, domain.RoleFielded, result[0].Role)
	assert.Equal(t, 19, result[0].WorkedDays)
}

func TestAggregatePeriod_Deterministic(t *testing.T) {
	c := newTestClassifier()

	ops := []domain.RawOperation{
		op("641000", "Zoe Martin", 100),
		op("641000", "Alice Durand", 200),
		op("645000", "Zoe Martin", 50),
	}

	first := c.AggregatePeriod(2024, ops, nil)
	second := c.AggregatePeriod(2024, ops, nil)
	assert.Equal(t, first, second)
	assert.Equal(t, "Alice Durand", first[0].EmployeeName)
}
