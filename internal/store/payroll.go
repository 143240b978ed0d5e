package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/clarelia/finboard/internal/database"
	"github.com/clarelia/finboard/internal/domain"
)

// PayrollRepository persists per-employee payroll aggregates. Each period
// is recomputed wholesale: an upsert replaces every employee row of the
// period in one transaction.
type PayrollRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPayrollRepository creates a payroll repository.
func NewPayrollRepository(db *sql.DB, log zerolog.Logger) *PayrollRepository {
	return &PayrollRepository{
		db:  db,
		log: log.With().Str("repo", "payroll").Logger(),
	}
}

// UpsertPeriod replaces all employee aggregates of a period.
func (r *PayrollRepository) UpsertPeriod(period domain.Period, employees []domain.PayrollEmployeeAggregate) error {
	periodID := period.Key()

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM payroll_employees WHERE period_id = ?", periodID); err != nil {
			return fmt.Errorf("failed to clear payroll rows: %w", err)
		}

		for _, emp := range employees {
			var opsJSON *string
			if len(emp.Operations) > 0 {
				data, err := json.Marshal(emp.Operations)
				if err != nil {
					return fmt.Errorf("failed to marshal operations for %s: %w", emp.EmployeeName, err)
				}
				s := string(data)
				opsJSON = &s
			}

			_, err := tx.Exec(`
				INSERT INTO payroll_employees (
					period_id, year, employee_name, contract_id, salary_paid,
					total_bonuses, total_contributions, total_gross_cost,
					worked_days, role, operations_json
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				periodID,
				period.Year,
				emp.EmployeeName,
				emp.ContractID,
				emp.SalaryPaid.String(),
				emp.TotalBonuses.String(),
				emp.TotalContributions.String(),
				emp.TotalGrossCost.String(),
				emp.WorkedDays,
				string(emp.Role),
				opsJSON,
			)
			if err != nil {
				return fmt.Errorf("failed to insert payroll row for %s: %w", emp.EmployeeName, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: payroll period %s: %v", domain.ErrStoreWriteFailed, periodID, err)
	}
	return nil
}

// ListByPeriod retrieves the employee aggregates of one period, ordered by
// (name, contract).
func (r *PayrollRepository) ListByPeriod(periodID string) ([]domain.PayrollEmployeeAggregate, error) {
	rows, err := r.db.Query(`
		SELECT employee_name, contract_id, salary_paid, total_bonuses,
		       total_contributions, total_gross_cost, worked_days, role, operations_json
		FROM payroll_employees
		WHERE period_id = ?
		ORDER BY employee_name, contract_id
	`, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payroll for period %s: %w", periodID, err)
	}
	defer rows.Close()

	return scanEmployees(rows)
}

// RollupYear merges the stored aggregates of a year per employee: totals
// and worked days are summed, the role is taken from the most recent
// period (role attribution may legitimately change across the tag-scheme
// cutover). Operations are not carried into rollups.
func (r *PayrollRepository) RollupYear(year int) ([]domain.PayrollEmployeeAggregate, error) {
	rows, err := r.db.Query(`
		SELECT employee_name, contract_id, salary_paid, total_bonuses,
		       total_contributions, total_gross_cost, worked_days, role, operations_json
		FROM payroll_employees
		WHERE year = ?
		ORDER BY period_id ASC
	`, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query payroll for year %d: %w", year, err)
	}
	defer rows.Close()

	perPeriod, err := scanEmployees(rows)
	if err != nil {
		return nil, err
	}

	type key struct{ name, contract string }
	merged := map[key]*domain.PayrollEmployeeAggregate{}
	for _, emp := range perPeriod {
		k := key{name: emp.EmployeeName, contract: emp.ContractID}
		agg, exists := merged[k]
		if !exists {
			agg = &domain.PayrollEmployeeAggregate{
				EmployeeName: emp.EmployeeName,
				ContractID:   emp.ContractID,
			}
			merged[k] = agg
		}
		agg.SalaryPaid = agg.SalaryPaid.Add(emp.SalaryPaid)
		agg.TotalBonuses = agg.TotalBonuses.Add(emp.TotalBonuses)
		agg.TotalContributions = agg.TotalContributions.Add(emp.TotalContributions)
		agg.TotalGrossCost = agg.TotalGrossCost.Add(emp.TotalGrossCost)
		agg.WorkedDays += emp.WorkedDays
		agg.Role = emp.Role // rows are ordered by period, last one wins
	}

	result := make([]domain.PayrollEmployeeAggregate, 0, len(merged))
	for _, agg := range merged {
		agg.Operations = nil
		result = append(result, *agg)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].EmployeeName != result[j].EmployeeName {
			return result[i].EmployeeName < result[j].EmployeeName
		}
		return result[i].ContractID < result[j].ContractID
	})
	return result, nil
}

// scanEmployees scans payroll rows into aggregates.
func scanEmployees(rows *sql.Rows) ([]domain.PayrollEmployeeAggregate, error) {
	var employees []domain.PayrollEmployeeAggregate

	for rows.Next() {
		var emp domain.PayrollEmployeeAggregate
		var salary, bonuses, contributions, grossCost, role string
		var opsJSON sql.NullString

		err := rows.Scan(&emp.EmployeeName, &emp.ContractID, &salary, &bonuses,
			&contributions, &grossCost, &emp.WorkedDays, &role, &opsJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll row: %w", err)
		}

		if emp.SalaryPaid, err = parseAmount(salary); err != nil {
			return nil, err
		}
		if emp.TotalBonuses, err = parseAmount(bonuses); err != nil {
			return nil, err
		}
		if emp.TotalContributions, err = parseAmount(contributions); err != nil {
			return nil, err
		}
		if emp.TotalGrossCost, err = parseAmount(grossCost); err != nil {
			return nil, err
		}
		emp.Role = domain.Role(role)

		if opsJSON.Valid && opsJSON.String != "" {
			if err := json.Unmarshal([]byte(opsJSON.String), &emp.Operations); err != nil {
				return nil, fmt.Errorf("failed to unmarshal operations for %s: %w", emp.EmployeeName, err)
			}
		}

		employees = append(employees, emp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payroll rows: %w", err)
	}
	return employees, nil
}
