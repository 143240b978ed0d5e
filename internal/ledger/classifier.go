package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/clarelia/finboard/internal/domain"
)

// Classifier maps a ledger line to a financial bucket and a signed amount
// using ordered prefix rules. Classification is a pure function of the
// account id and the line amounts: two lines with the same account id
// always land in the same bucket, which is what makes re-aggregation safe.
type Classifier struct {
	rules *Rules
}

// NewClassifier creates a classifier over the given rule set.
func NewClassifier(rules *Rules) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the bucket and signed amount for a ledger line, or
// ok=false when no rule matches the account id. Unmatched lines are
// excluded from every bucket; that is expected for account classes outside
// the reporting scope and is not an error.
//
// Sign conventions per bucket:
//   - Revenue: credit - debit (liability/equity-side)
//   - Expense, PayrollExpense: debit - credit
//   - Treasury: debit - credit (asset-side)
//
// Revenue and Treasury deliberately use opposite conventions even though
// both report "positive is good". The asymmetry mirrors which side of the
// balance sheet each bucket lives on and must be preserved exactly.
func (c *Classifier) Classify(line domain.LedgerLine) (domain.Bucket, decimal.Decimal, bool) {
	for _, rule := range c.rules.rules {
		if !strings.HasPrefix(line.AccountID, rule.Prefix) {
			continue
		}
		switch rule.Bucket {
		case domain.BucketRevenue:
			return rule.Bucket, line.Credit.Sub(line.Debit), true
		default:
			return rule.Bucket, line.Debit.Sub(line.Credit), true
		}
	}
	return "", decimal.Zero, false
}
