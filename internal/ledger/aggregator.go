package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/clarelia/finboard/internal/domain"
)

// Aggregator folds classified ledger lines into a per-period KPI record
// with per-account breakdowns. The output is a pure function of the input
// line set: identical inputs yield identical aggregates, which is what
// makes re-synchronization idempotent.
type Aggregator struct {
	classifier *Classifier
}

// NewAggregator creates an aggregator over the given classifier.
func NewAggregator(classifier *Classifier) *Aggregator {
	return &Aggregator{classifier: classifier}
}

// Aggregate builds the PeriodAggregate for one period from its raw ledger
// lines. Lines that classify into a bucket contribute their signed amount
// to the bucket total and to the bucket's breakdown, merged by account id.
// Unclassifiable lines are dropped silently - upstream data-quality issues
// must not abort a sync. An empty line set yields zero totals and empty
// breakdowns.
//
// The stored TreasuryBalance is the period's own treasury figure as summed
// here; the cumulative treasury pass may overwrite it afterwards.
func (a *Aggregator) Aggregate(period domain.Period, lines []domain.LedgerLine) domain.PeriodAggregate {
	totals := map[domain.Bucket]decimal.Decimal{}
	merged := map[domain.Bucket]map[string]*domain.BreakdownEntry{}
	for _, b := range domain.Buckets {
		totals[b] = decimal.Zero
		merged[b] = map[string]*domain.BreakdownEntry{}
	}

	for _, line := range lines {
		bucket, amount, ok := a.classifier.Classify(line)
		if !ok {
			continue
		}
		totals[bucket] = totals[bucket].Add(amount)

		if entry, exists := merged[bucket][line.AccountID]; exists {
			entry.Amount = entry.Amount.Add(amount)
		} else {
			merged[bucket][line.AccountID] = &domain.BreakdownEntry{
				AccountID: line.AccountID,
				Label:     line.Label,
				Amount:    amount,
			}
		}
	}

	breakdowns := make(map[domain.Bucket][]domain.BreakdownEntry, len(domain.Buckets))
	for _, bucket := range domain.Buckets {
		entries := make([]domain.BreakdownEntry, 0, len(merged[bucket]))
		for _, entry := range merged[bucket] {
			entries = append(entries, *entry)
		}
		// Sorted by account id so aggregates are byte-identical across runs.
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].AccountID < entries[j].AccountID
		})
		breakdowns[bucket] = entries
	}

	return domain.PeriodAggregate{
		PeriodID:            period.Key(),
		Year:                period.Year,
		Ordinal:             period.Ordinal(),
		RevenueTotal:        totals[domain.BucketRevenue],
		ExpenseTotal:        totals[domain.BucketExpense],
		PayrollExpenseTotal: totals[domain.BucketPayrollExpense],
		NetResult:           totals[domain.BucketRevenue].Sub(totals[domain.BucketExpense]),
		TreasuryBalance:     totals[domain.BucketTreasury],
		Breakdowns:          breakdowns,
	}
}
