// Package store implements the sqlite repositories behind the reports
// database: period aggregates, payroll employee aggregates and the sync
// run audit trail. Amounts are persisted as decimal strings.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/clarelia/finboard/internal/database"
	"github.com/clarelia/finboard/internal/domain"
	"github.com/clarelia/finboard/internal/ledger"
)

// PeriodRepository persists period aggregates. Upserts are atomic per
// period and last-write-wins: either the full new aggregate is visible or
// the prior one is, never a partial mix.
type PeriodRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPeriodRepository creates a period repository.
func NewPeriodRepository(db *sql.DB, log zerolog.Logger) *PeriodRepository {
	return &PeriodRepository{
		db:  db,
		log: log.With().Str("repo", "periods").Logger(),
	}
}

// Upsert stores a period aggregate, replacing all derived fields of any
// prior record for the same period in one transaction. The aggregate's
// treasury figure is written both as the raw movement and as the initial
// balance; the cumulative treasury pass rewrites the balance afterwards.
// Safe to call repeatedly with the same period id.
func (r *PeriodRepository) Upsert(agg domain.PeriodAggregate) error {
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO periods (
				period_id, year, ordinal, revenue_total, expense_total,
				payroll_expense_total, net_result, treasury_movement,
				treasury_balance, synced_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(period_id) DO UPDATE SET
				year = excluded.year,
				ordinal = excluded.ordinal,
				revenue_total = excluded.revenue_total,
				expense_total = excluded.expense_total,
				payroll_expense_total = excluded.payroll_expense_total,
				net_result = excluded.net_result,
				treasury_movement = excluded.treasury_movement,
				treasury_balance = excluded.treasury_balance,
				synced_at = excluded.synced_at
		`,
			agg.PeriodID,
			agg.Year,
			agg.Ordinal,
			agg.RevenueTotal.String(),
			agg.ExpenseTotal.String(),
			agg.PayrollExpenseTotal.String(),
			agg.NetResult.String(),
			agg.TreasuryBalance.String(),
			agg.TreasuryBalance.String(),
			time.Now().Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert period row: %w", err)
		}

		if _, err := tx.Exec("DELETE FROM period_breakdowns WHERE period_id = ?", agg.PeriodID); err != nil {
			return fmt.Errorf("failed to clear breakdowns: %w", err)
		}

		for _, bucket := range domain.Buckets {
			for _, entry := range agg.Breakdowns[bucket] {
				_, err := tx.Exec(`
					INSERT INTO period_breakdowns (period_id, bucket, account_id, label, amount)
					VALUES (?, ?, ?, ?, ?)
				`, agg.PeriodID, string(bucket), entry.AccountID, entry.Label, entry.Amount.String())
				if err != nil {
					return fmt.Errorf("failed to insert breakdown for account %s: %w", entry.AccountID, err)
				}
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: period %s: %v", domain.ErrStoreWriteFailed, agg.PeriodID, err)
	}
	return nil
}

// Get retrieves one period aggregate with its breakdowns. Returns
// (nil, nil) when the period has never been synced.
func (r *PeriodRepository) Get(periodID string) (*domain.PeriodAggregate, error) {
	row := r.db.QueryRow(`
		SELECT period_id, year, ordinal, revenue_total, expense_total,
		       payroll_expense_total, net_result, treasury_balance
		FROM periods
		WHERE period_id = ?
	`, periodID)

	agg, err := scanPeriod(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get period %s: %w", periodID, err)
	}

	if err := r.loadBreakdowns(agg); err != nil {
		return nil, err
	}
	return agg, nil
}

// ListByYear retrieves all stored period aggregates of a year ordered by
// ordinal, breakdowns included.
func (r *PeriodRepository) ListByYear(year int) ([]domain.PeriodAggregate, error) {
	rows, err := r.db.Query(`
		SELECT period_id, year, ordinal, revenue_total, expense_total,
		       payroll_expense_total, net_result, treasury_balance
		FROM periods
		WHERE year = ?
		ORDER BY ordinal ASC
	`, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods for year %d: %w", year, err)
	}
	defer rows.Close()

	var aggregates []domain.PeriodAggregate
	for rows.Next() {
		agg, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan period row: %w", err)
		}
		aggregates = append(aggregates, *agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating periods: %w", err)
	}

	for i := range aggregates {
		if err := r.loadBreakdowns(&aggregates[i]); err != nil {
			return nil, err
		}
	}
	return aggregates, nil
}

// ListTreasuryMovements returns the raw per-period treasury figures of a
// year, implementing ledger.TreasuryStore.
func (r *PeriodRepository) ListTreasuryMovements(year int) ([]ledger.TreasuryMovement, error) {
	rows, err := r.db.Query(`
		SELECT period_id, ordinal, treasury_movement
		FROM periods
		WHERE year = ?
		ORDER BY ordinal ASC
	`, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query treasury movements: %w", err)
	}
	defer rows.Close()

	var movements []ledger.TreasuryMovement
	for rows.Next() {
		var m ledger.TreasuryMovement
		var raw string
		if err := rows.Scan(&m.PeriodID, &m.Ordinal, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan treasury movement: %w", err)
		}
		if m.Movement, err = parseAmount(raw); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating treasury movements: %w", err)
	}
	return movements, nil
}

// UpdateTreasuryBalance patches the derived treasury balance of one
// period. The only in-place update the period record ever receives.
func (r *PeriodRepository) UpdateTreasuryBalance(periodID string, balance decimal.Decimal) error {
	result, err := r.db.Exec(
		"UPDATE periods SET treasury_balance = ? WHERE period_id = ?",
		balance.String(), periodID,
	)
	if err != nil {
		return fmt.Errorf("failed to update treasury balance for %s: %w", periodID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("period %s not found for treasury update", periodID)
	}
	return nil
}

// YearSummary is the rolled-up view of one year for reporting consumers.
// Totals are summed over stored periods; the treasury balance is the last
// stored period's balance.
type YearSummary struct {
	Year                int                      `json:"year"`
	RevenueTotal        decimal.Decimal          `json:"revenue_total"`
	ExpenseTotal        decimal.Decimal          `json:"expense_total"`
	PayrollExpenseTotal decimal.Decimal          `json:"payroll_expense_total"`
	NetResult           decimal.Decimal          `json:"net_result"`
	TreasuryBalance     decimal.Decimal          `json:"treasury_balance"`
	Periods             []domain.PeriodAggregate `json:"periods"`
}

// RollupYear sums the stored periods of a year. Returns (nil, nil) when
// no period of the year has been synced.
func (r *PeriodRepository) RollupYear(year int) (*YearSummary, error) {
	periods, err := r.ListByYear(year)
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, nil
	}

	summary := &YearSummary{Year: year, Periods: periods}
	for _, p := range periods {
		summary.RevenueTotal = summary.RevenueTotal.Add(p.RevenueTotal)
		summary.ExpenseTotal = summary.ExpenseTotal.Add(p.ExpenseTotal)
		summary.PayrollExpenseTotal = summary.PayrollExpenseTotal.Add(p.PayrollExpenseTotal)
		summary.NetResult = summary.NetResult.Add(p.NetResult)
	}
	summary.TreasuryBalance = periods[len(periods)-1].TreasuryBalance
	return summary, nil
}

// scanner abstracts sql.Row and sql.Rows for scanPeriod.
type scanner interface {
	Scan(dest ...any) error
}

func scanPeriod(s scanner) (*domain.PeriodAggregate, error) {
	var agg domain.PeriodAggregate
	var revenue, expense, payrollExpense, net, treasury string

	if err := s.Scan(&agg.PeriodID, &agg.Year, &agg.Ordinal,
		&revenue, &expense, &payrollExpense, &net, &treasury); err != nil {
		return nil, err
	}

	var err error
	if agg.RevenueTotal, err = parseAmount(revenue); err != nil {
		return nil, err
	}
	if agg.ExpenseTotal, err = parseAmount(expense); err != nil {
		return nil, err
	}
	if agg.PayrollExpenseTotal, err = parseAmount(payrollExpense); err != nil {
		return nil, err
	}
	if agg.NetResult, err = parseAmount(net); err != nil {
		return nil, err
	}
	if agg.TreasuryBalance, err = parseAmount(treasury); err != nil {
		return nil, err
	}
	return &agg, nil
}

// loadBreakdowns populates the breakdown map of a period aggregate. Every
// bucket gets at least an empty slice so read results match freshly
// aggregated records.
func (r *PeriodRepository) loadBreakdowns(agg *domain.PeriodAggregate) error {
	rows, err := r.db.Query(`
		SELECT bucket, account_id, label, amount
		FROM period_breakdowns
		WHERE period_id = ?
		ORDER BY bucket, account_id
	`, agg.PeriodID)
	if err != nil {
		return fmt.Errorf("failed to query breakdowns for %s: %w", agg.PeriodID, err)
	}
	defer rows.Close()

	agg.Breakdowns = make(map[domain.Bucket][]domain.BreakdownEntry, len(domain.Buckets))
	for _, bucket := range domain.Buckets {
		agg.Breakdowns[bucket] = []domain.BreakdownEntry{}
	}

	for rows.Next() {
		var bucket string
		var entry domain.BreakdownEntry
		var amount string
		if err := rows.Scan(&bucket, &entry.AccountID, &entry.Label, &amount); err != nil {
			return fmt.Errorf("failed to scan breakdown row: %w", err)
		}
		if entry.Amount, err = parseAmount(amount); err != nil {
			return err
		}
		b := domain.Bucket(bucket)
		agg.Breakdowns[b] = append(agg.Breakdowns[b], entry)
	}
	return rows.Err()
}

// parseAmount converts a stored decimal string back into a decimal.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid stored amount %q: %w", s, err)
	}
	return d, nil
}
