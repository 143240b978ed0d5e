// Package domain contains the core types shared across finboard: ledger
// lines, financial buckets, period aggregates, payroll aggregates and the
// sync audit record. The domain layer is pure - no infrastructure
// dependencies beyond the decimal type used for monetary amounts.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bucket is a financial classification target for ledger lines.
type Bucket string

const (
	BucketRevenue        Bucket = "revenue"
	BucketExpense        Bucket = "expense"
	BucketPayrollExpense Bucket = "payroll_expense"
	BucketTreasury       Bucket = "treasury"
)

// Buckets lists all buckets in a stable order, used when iterating
// breakdown maps deterministically.
var Buckets = []Bucket{BucketRevenue, BucketExpense, BucketPayrollExpense, BucketTreasury}

// Role is the organizational role resolved for a payroll employee.
type Role string

const (
	RoleFielded Role = "fielded"
	RoleOffice  Role = "office"
	RoleUnknown Role = "unknown"
)

// LedgerLine is one raw general-ledger entry as returned by the external
// accounting source for a period. Debit and credit are non-negative; both
// may be present on gross postings. Ledger lines are ephemeral - they are
// never persisted raw.
type LedgerLine struct {
	AccountID string          `json:"account_id"`
	Label     string          `json:"label"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// Tag is a structured key/value attribute attached to a payroll operation
// by the upstream payroll source (e.g. team membership).
type Tag struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// RawOperation is one payroll ledger operation attributed to an employee.
// Operations without an employee name cannot be attributed and are dropped
// by the payroll classifier.
type RawOperation struct {
	AccountID    string          `json:"account_id"`
	Label        string          `json:"label"`
	EmployeeName string          `json:"employee_name"`
	ContractID   string          `json:"contract_id"`
	Debit        decimal.Decimal `json:"debit"`
	Credit       decimal.Decimal `json:"credit"`
	Tags         []Tag           `json:"tags,omitempty"`
}

// Amount returns the absolute value of whichever side of the operation is
// nonzero.
func (o RawOperation) Amount() decimal.Decimal {
	if !o.Debit.IsZero() {
		return o.Debit.Abs()
	}
	return o.Credit.Abs()
}

// BreakdownEntry is one account-level line of a bucket breakdown. Entries
// sharing an account id within a period are collapsed by summing amounts.
type BreakdownEntry struct {
	AccountID string          `json:"account_id"`
	Label     string          `json:"label"`
	Amount    decimal.Decimal `json:"amount"`
}

// PeriodAggregate is the per-period KPI record. One record exists per
// period, keyed by PeriodID, and is overwritten wholesale on each sync of
// that period. Only TreasuryBalance is ever patched in place, by the
// cumulative treasury pass.
type PeriodAggregate struct {
	PeriodID            string                      `json:"period_id"`
	Year                int                         `json:"year"`
	Ordinal             int                         `json:"ordinal"`
	RevenueTotal        decimal.Decimal             `json:"revenue_total"`
	ExpenseTotal        decimal.Decimal             `json:"expense_total"`
	PayrollExpenseTotal decimal.Decimal             `json:"payroll_expense_total"`
	NetResult           decimal.Decimal             `json:"net_result"`
	TreasuryBalance     decimal.Decimal             `json:"treasury_balance"`
	Breakdowns          map[Bucket][]BreakdownEntry `json:"breakdowns"`
}

// PayrollEmployeeAggregate holds per-employee payroll totals for one
// period, keyed by (EmployeeName, ContractID). Recomputed wholesale on
// each period sync; year rollups sum stored aggregates rather than
// re-deriving them.
type PayrollEmployeeAggregate struct {
	EmployeeName       string          `json:"employee_name"`
	ContractID         string          `json:"contract_id"`
	SalaryPaid         decimal.Decimal `json:"salary_paid"`
	TotalBonuses       decimal.Decimal `json:"total_bonuses"`
	TotalContributions decimal.Decimal `json:"total_contributions"`
	TotalGrossCost     decimal.Decimal `json:"total_gross_cost"`
	WorkedDays         int             `json:"worked_days"`
	Role               Role            `json:"role"`
	Operations         []RawOperation  `json:"operations,omitempty"`
}

// SyncRun is the append-only audit record of one orchestrated sync run.
// Never mutated after completion.
type SyncRun struct {
	RunID            string    `json:"run_id"`
	Kind             string    `json:"kind"`
	StartedAt        time.Time `json:"started_at"`
	PeriodsRequested int       `json:"periods_requested"`
	PeriodsSucceeded int       `json:"periods_succeeded"`
	PeriodsFailed    int       `json:"periods_failed"`
	DurationMs       int64     `json:"duration_ms"`
}

// TreasurySemantics selects how the upstream source's treasury figures are
// interpreted by the cumulative treasury pass. The upstream API is
// ambiguous about whether its figures are period-end balances or net
// movements, so this is an explicit configuration choice rather than a
// silent assumption.
type TreasurySemantics string

const (
	// TreasuryBalances treats each period's treasury figure as a
	// self-contained period-end balance.
	TreasuryBalances TreasurySemantics = "balance"
	// TreasuryDeltas treats treasury figures as monthly net movements and
	// accumulates them across the year, resetting at year boundaries.
	TreasuryDeltas TreasurySemantics = "delta"
)

// ParseTreasurySemantics validates a configured semantics value.
func ParseTreasurySemantics(s string) (TreasurySemantics, bool) {
	switch TreasurySemantics(s) {
	case TreasuryBalances, TreasuryDeltas:
		return TreasurySemantics(s), true
	}
	return "", false
}
