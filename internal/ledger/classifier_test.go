package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarelia/finboard/internal/domain"
)

func line(accountID string, debit, credit int64) domain.LedgerLine {
	return domain.LedgerLine{
		AccountID: accountID,
		Label:     "test " + accountID,
		Debit:     decimal.NewFromInt(debit),
		Credit:    decimal.NewFromInt(credit),
	}
}

func TestClassifier_SignConventions(t *testing.T) {
	c := NewClassifier(DefaultRules())

	// Expense: debit 100, credit 30 contributes +70
	bucket, amount, ok := c.Classify(line("606000", 100, 30))
	require.True(t, ok)
	assert.Equal(t, domain.BucketExpense, bucket)
	assert.True(t, amount.Equal(decimal.NewFromInt(70)), "got %s", amount)

	// Revenue: debit 10, credit 100 contributes +90
	bucket, amount, ok = c.Classify(line("706000", 10, 100))
	require.True(t, ok)
	assert.Equal(t, domain.BucketRevenue, bucket)
	assert.True(t, amount.Equal(decimal.NewFromInt(90)), "got %s", amount)

	// Treasury uses the asset-side convention: debit 50, credit 20 contributes +30
	bucket, amount, ok = c.Classify(line("512000", 50, 20))
	require.True(t, ok)
	assert.Equal(t, domain.BucketTreasury, bucket)
	assert.True(t, amount.Equal(decimal.NewFromInt(30)), "got %s", amount)
}

func TestClassifier_LongestPrefixWins(t *testing.T) {
	c := NewClassifier(DefaultRules())

	// 641xxx is payroll expense even though class 6 is plain expense
	bucket, _, ok := c.Classify(line("641000", 1000, 0))
	require.True(t, ok)
	assert.Equal(t, domain.BucketPayrollExpense, bucket)

	// Ordering of rule declaration must not matter
	reversed := NewRules([]PrefixRule{
		{Prefix: "6", Bucket: domain.BucketExpense},
		{Prefix: "64", Bucket: domain.BucketPayrollExpense},
	})
	bucket, _, ok = NewClassifier(reversed).Classify(line("645100", 200, 0))
	require.True(t, ok)
	assert.Equal(t, domain.BucketPayrollExpense, bucket)
}

func TestClassifier_NoMatchIsExcluded(t *testing.T) {
	c := NewClassifier(DefaultRules())

	// Class 4 (third-party accounts) has no rule - excluded, not an error
	_, _, ok := c.Classify(line("411000", 100, 0))
	assert.False(t, ok)

	_, _, ok = c.Classify(line("", 100, 0))
	assert.False(t, ok)
}

func TestClassifier_Deterministic(t *testing.T) {
	c := NewClassifier(DefaultRules())
	l := line("512100", 75, 5)

	b1, a1, ok1 := c.Classify(l)
	b2, a2, ok2 := c.Classify(l)

	assert.Equal(t, b1, b2)
	assert.True(t, a1.Equal(a2))
	assert.Equal(t, ok1, ok2)
}
