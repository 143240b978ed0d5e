package ledger

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/clarelia/finboard/internal/domain"
)

// TreasuryMovement is one period's raw treasury figure as written by the
// period upsert, before any cumulative derivation.
type TreasuryMovement struct {
	PeriodID string
	Ordinal  int
	Movement decimal.Decimal
}

// TreasuryStore is the subset of the period store the treasury pass needs.
// The pass always reads raw movements, never derived balances, so that
// re-running it is idempotent.
type TreasuryStore interface {
	ListTreasuryMovements(year int) ([]TreasuryMovement, error)
	UpdateTreasuryBalance(periodID string, balance decimal.Decimal) error
}

// TreasuryCalculator recomputes the treasury balance of every stored
// period of a year. It runs strictly after all periods of the year have
// been upserted, because in delta mode later periods depend on earlier
// ones. The semantics flag decides whether upstream treasury figures are
// period-end balances (kept as-is) or net movements (accumulated across
// the year, reset at year boundaries - no carry-over from the prior year).
type TreasuryCalculator struct {
	store     TreasuryStore
	semantics domain.TreasurySemantics
	log       zerolog.Logger
}

// NewTreasuryCalculator creates a treasury calculator with the configured
// semantics.
func NewTreasuryCalculator(store TreasuryStore, semantics domain.TreasurySemantics, log zerolog.Logger) *TreasuryCalculator {
	return &TreasuryCalculator{
		store:     store,
		semantics: semantics,
		log:       log.With().Str("component", "treasury_calculator").Logger(),
	}
}

// RecomputeYear loads the stored raw treasury figures of the year in
// chronological order and rewrites each period's treasury balance
// according to the configured semantics. Safe to re-run at any time: the
// derivation always starts from the raw movements.
func (c *TreasuryCalculator) RecomputeYear(year int) error {
	movements, err := c.store.ListTreasuryMovements(year)
	if err != nil {
		return fmt.Errorf("failed to list treasury movements for year %d: %w", year, err)
	}
	if len(movements) == 0 {
		return nil
	}

	sort.Slice(movements, func(i, j int) bool {
		return movements[i].Ordinal < movements[j].Ordinal
	})

	running := decimal.Zero
	for _, m := range movements {
		var balance decimal.Decimal
		switch c.semantics {
		case domain.TreasuryBalances:
			// The figure is already a period-end balance.
			balance = m.Movement
		default:
			running = running.Add(m.Movement)
			balance = running
		}
		if err := c.store.UpdateTreasuryBalance(m.PeriodID, balance); err != nil {
			return fmt.Errorf("failed to update treasury for period %s: %w", m.PeriodID, err)
		}
	}

	c.log.Debug().
		Int("year", year).
		Int("periods", len(movements)).
		Str("semantics", string(c.semantics)).
		Msg("Recomputed treasury balances")

	return nil
}
