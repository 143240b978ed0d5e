// Package payroll classifies payroll-ledger operations per employee and
// resolves each employee into an organizational role. Account membership is
// exact (finite allow-lists, not prefixes): payroll chart-of-accounts
// granularity does not follow clean prefix hierarchies.
package payroll

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AccountSets holds the fixed account-id allow-lists driving payroll
// classification. An account may belong to several sets at once (a
// gross-cost account is typically also a charge account). Immutable after
// construction; injected into the Classifier so tests can supply alternate
// sets.
type AccountSets struct {
	Contribution map[string]bool
	GrossCost    map[string]bool
	Charge       map[string]bool
	Tier         map[string]bool
	BonusAccount string
}

// toSet converts a list of account ids into a membership set.
func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// DefaultAccountSets returns the built-in payroll account allow-lists for
// the French chart of accounts: 641x gross salaries, 645x employer
// contributions, 421 net pay (third-party account used for salary paid).
func DefaultAccountSets() AccountSets {
	return AccountSets{
		Contribution: toSet([]string{"645000", "645100", "645200", "437000"}),
		GrossCost:    toSet([]string{"641000", "641100", "641300", "645000", "645100", "645200"}),
		Charge:       toSet([]string{"645000", "645100", "645200"}),
		Tier:         toSet([]string{"421000"}),
		BonusAccount: "641300",
	}
}

// accountsFile is the YAML shape of an external account-set override file.
type accountsFile struct {
	Contribution []string `yaml:"contribution_accounts"`
	GrossCost    []string `yaml:"gross_cost_accounts"`
	Charge       []string `yaml:"charge_accounts"`
	Tier         []string `yaml:"tier_accounts"`
	BonusAccount string   `yaml:"bonus_account"`
}

// LoadAccountSetsFile loads payroll account allow-lists from a YAML file.
func LoadAccountSetsFile(path string) (AccountSets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AccountSets{}, fmt.Errorf("failed to read payroll accounts file: %w", err)
	}

	var f accountsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return AccountSets{}, fmt.Errorf("failed to parse payroll accounts file %s: %w", path, err)
	}
	if f.BonusAccount == "" {
		return AccountSets{}, fmt.Errorf("payroll accounts file %s does not designate a bonus account", path)
	}

	return AccountSets{
		Contribution: toSet(f.Contribution),
		GrossCost:    toSet(f.GrossCost),
		Charge:       toSet(f.Charge),
		Tier:         toSet(f.Tier),
		BonusAccount: f.BonusAccount,
	}, nil
}
