package payroll

import (
	"sort"

	"github.com/clarelia/finboard/internal/domain"
)

// employeeKey identifies one employee aggregate within a period.
type employeeKey struct {
	name       string
	contractID string
}

// Classifier folds raw payroll operations into per-employee aggregates
// using exact account-set membership, and delegates role attribution to
// the resolver.
type Classifier struct {
	accounts AccountSets
	resolver *RoleResolver
}

// NewClassifier creates a payroll classifier over the given account sets
// and role resolver.
func NewClassifier(accounts AccountSets, resolver *RoleResolver) *Classifier {
	return &Classifier{accounts: accounts, resolver: resolver}
}

// Membership reports which category sets an operation's account belongs
// to. Categories are not exclusive.
type Membership struct {
	Contribution bool
	GrossCost    bool
	Charge       bool
	Tier         bool
	Bonus        bool
}

// Classify returns the category membership of a single operation.
func (c *Classifier) Classify(op domain.RawOperation) Membership {
	return Membership{
		Contribution: c.accounts.Contribution[op.AccountID],
		GrossCost:    c.accounts.GrossCost[op.AccountID],
		Charge:       c.accounts.Charge[op.AccountID],
		Tier:         c.accounts.Tier[op.AccountID],
		Bonus:        op.AccountID == c.accounts.BonusAccount,
	}
}

// AggregatePeriod folds one period's operations into per-employee
// aggregates. Operations without an employee name cannot be attributed and
// are dropped. Running totals follow the category rules: salary paid from
// tier (net pay) operations, bonuses from the single designated bonus
// account, contributions and gross cost from their respective sets. The
// amount of an operation is the absolute value of its nonzero side.
//
// workedDays, when available from the payroll source, is attached per
// employee name. The result is sorted by (name, contract) so identical
// inputs yield identical output.
func (c *Classifier) AggregatePeriod(periodYear int, ops []domain.RawOperation, workedDays map[string]int) []domain.PayrollEmployeeAggregate {
	byEmployee := map[employeeKey]*domain.PayrollEmployeeAggregate{}

	for _, op := range ops {
		if op.EmployeeName == "" {
			continue
		}

		key := employeeKey{name: op.EmployeeName, contractID: op.ContractID}
		agg, exists := byEmployee[key]
		if !exists {
			agg = &domain.PayrollEmployeeAggregate{
				EmployeeName: op.EmployeeName,
				ContractID:   op.ContractID,
			}
			byEmployee[key] = agg
		}

		amount := op.Amount()
		m := c.Classify(op)
		if m.Tier {
			agg.SalaryPaid = agg.SalaryPaid.Add(amount)
		}
		if m.Bonus {
			agg.TotalBonuses = agg.TotalBonuses.Add(amount)
		}
		if m.Contribution {
			agg.TotalContributions = agg.TotalContributions.Add(amount)
		}
		if m.GrossCost {
			agg.TotalGrossCost = agg.TotalGrossCost.Add(amount)
		}

		agg.Operations = append(agg.Operations, op)
	}

	result := make([]domain.PayrollEmployeeAggregate, 0, len(byEmployee))
	for _, agg := range byEmployee {
		agg.Role = c.resolver.Resolve(agg.EmployeeName, agg.Operations, periodYear)
		if workedDays != nil {
			agg.WorkedDays = workedDays[agg.EmployeeName]
		}
		result = append(result, *agg)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EmployeeName != result[j].EmployeeName {
			return result[i].EmployeeName < result[j].EmployeeName
		}
		return result[i].ContractID < result[j].ContractID
	})

	return result
}
