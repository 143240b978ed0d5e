package store

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarelia/finboard/internal/domain"
	fbtesting "github.com/clarelia/finboard/internal/testing"
)

func testEmployee(name, contract string, salary, gross int64, role domain.Role) domain.PayrollEmployeeAggregate {
	return domain.PayrollEmployeeAggregate{
		EmployeeName:   name,
		ContractID:     contract,
		SalaryPaid:     decimal.NewFromInt(salary),
		TotalGrossCost: decimal.NewFromInt(gross),
		WorkedDays:     20,
		Role:           role,
	}
}

func TestPayrollRepository_UpsertAndList(t *testing.T) {
	db, cleanup := fbtesting.NewTestDB(t)
	defer cleanup()
	repo := NewPayrollRepository(db.Conn(), zerolog.Nop())

	period := domain.Period{Year: 2024, Month: time.January}
	emp := testEmployee("MARIE DUPONT", "C-001", 2100, 3000, domain.RoleFielded)
	emp.Operations = []domain.RawOperation{
		{AccountID: "421000", EmployeeName: "MARIE DUPONT", ContractID: "C-001", Credit: decimal.NewFromInt(2100)},
	}
	require.NoError(t, repo.UpsertPeriod(period, []domain.PayrollEmployeeAggregate{emp}))

	stored, err := repo.ListByPeriod("2024-01")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "MARIE DUPONT", stored[0].EmployeeName)
	assert.True(t, stored[0].SalaryPaid.Equal(decimal.NewFromInt(2100)))
	assert.Equal(t, domain.RoleFielded, stored[0].Role)
	require.Len(t, stored[0].Operations, 1)
	assert.Equal(t, "421000", stored[0].Operations[0].AccountID)
}

func TestPayrollRepository_UpsertReplacesPeriodWholesale(t *testing.T) {
	db, cleanup := fbtesting.NewTestDB(t)
	defer cleanup()
	repo := NewPayrollRepository(db.Conn(), zerolog.Nop())

	period := domain.Period{Year: 2024, Month: time.February}
	require.NoError(t, repo.UpsertPeriod(period, []domain.PayrollEmployeeAggregate{
		testEmployee("MARIE DUPONT", "C-001", 2100, 3000, domain.RoleFielded),
		testEmployee("JEAN MARTIN", "C-002", 1900, 2700, domain.RoleOffice),
	}))

	// A later sync of the same period sees only one employee: the other
	// row must disappear rather than linger.
	require.NoError(t, repo.UpsertPeriod(period, []domain.PayrollEmployeeAggregate{
		testEmployee("MARIE DUPONT", "C-001", 2200, 3100, domain.RoleFielded),
	}))

	stored, err := repo.ListByPeriod("2024-02")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "MARIE DUPONT", stored[0].EmployeeName)
	assert.True(t, stored[0].SalaryPaid.Equal(decimal.NewFromInt(2200)))
}

func TestPayrollRepository_ListMissingPeriodIsEmpty(t *testing.T) {
	db, cleanup := fbtesting.NewTestDB(t)
	defer cleanup()
	repo := NewPayrollRepository(db.Conn(), zerolog.Nop())

	stored, err := repo.ListByPeriod("1999-01")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestPayrollRepository_RollupYear(t *testing.T) {
	db, cleanup := fbtesting.NewTestDB(t)
	defer cleanup()
	repo := NewPayrollRepository(db.Conn(), zerolog.Nop())

	jan := testEmployee("MARIE DUPONT", "C-001", 2100, 3000, domain.RoleOffice)
	jan.Operations = []domain.RawOperation{{AccountID: "421000"}}
	require.NoError(t, repo.UpsertPeriod(domain.Period{Year: 2024, Month: time.January},
		[]domain.PayrollEmployeeAggregate{jan}))

	// Role changed mid-year; the rollup keeps the most recent one.
	feb := testEmployee("MARIE DUPONT", "C-001", 2100, 3000, domain.RoleFielded)
	require.NoError(t, repo.UpsertPeriod(domain.Period{Year: 2024, Month: time.February},
		[]domain.PayrollEmployeeAggregate{
			feb,
			testEmployee("JEAN MARTIN", "C-002", 1900, 2700, domain.RoleOffice),
		}))

	rollup, err := repo.RollupYear(2024)
	require.NoError(t, err)
	require.Len(t, rollup, 2)

	// Sorted by name: JEAN MARTIN before MARIE DUPONT.
	assert.Equal(t, "JEAN MARTIN", rollup[0].EmployeeName)
	assert.True(t, rollup[0].SalaryPaid.Equal(decimal.NewFromInt(1900)))

	marie := rollup[1]
	assert.Equal(t, "MARIE DUPONT", marie.EmployeeName)
	assert.True(t, marie.SalaryPaid.Equal(decimal.NewFromInt(4200)))
	assert.True(t, marie.TotalGrossCost.Equal(decimal.NewFromInt(6000)))
	assert.Equal(t, 40, marie.WorkedDays)
	assert.Equal(t, domain.RoleFielded, marie.Role)
	assert.Nil(t, marie.Operations)
}

func TestPayrollRepository_RollupSeparatesContracts(t *testing.T) {
	db, cleanup := fbtesting.NewTestDB(t)
	defer cleanup()
	repo := NewPayrollRepository(db.Conn(), zerolog.Nop())

	require.NoError(t, repo.UpsertPeriod(domain.Period{Year: 2024, Month: time.March},
		[]domain.PayrollEmployeeAggregate{
			testEmployee("MARIE DUPONT", "C-001", 1000, 1500, domain.RoleFielded),
			testEmployee("MARIE DUPONT", "C-009", 500, 800, domain.RoleFielded),
		}))

	rollup, err := repo.RollupYear(2024)
	require.NoError(t, err)
	require.Len(t, rollup, 2)
	assert.Equal(t, "C-001", rollup[0].ContractID)
	assert.Equal(t, "C-009", rollup[1].ContractID)
}
