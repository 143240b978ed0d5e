// Package ledger implements the classification and aggregation pipeline
// for raw general-ledger lines: prefix-rule account classification,
// per-period KPI aggregation and the cumulative treasury pass.
package ledger

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/clarelia/finboard/internal/domain"
)

// PrefixRule maps an account-id prefix to a bucket. Rules are matched
// longest-prefix-wins, so a 3-digit rule overrides a 1-digit class rule.
type PrefixRule struct {
	Prefix string        `yaml:"prefix"`
	Bucket domain.Bucket `yaml:"bucket"`
}

// Rules is the ordered classification rule set. Immutable after
// construction; injected into the Classifier so tests can supply alternate
// rule sets without global state.
type Rules struct {
	rules []PrefixRule
}

// NewRules builds a rule set, ordering rules by decreasing prefix length so
// that the first match during classification is always the most specific.
func NewRules(rules []PrefixRule) *Rules {
	ordered := make([]PrefixRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].Prefix) > len(ordered[j].Prefix)
	})
	return &Rules{rules: ordered}
}

// DefaultRules returns the built-in rule set for the French chart of
// accounts: class 7 revenue, class 6 expense, 64x payroll expense, bank
// and cash accounts treasury.
func DefaultRules() *Rules {
	return NewRules([]PrefixRule{
		{Prefix: "512", Bucket: domain.BucketTreasury},
		{Prefix: "53", Bucket: domain.BucketTreasury},
		{Prefix: "641", Bucket: domain.BucketPayrollExpense},
		{Prefix: "645", Bucket: domain.BucketPayrollExpense},
		{Prefix: "64", Bucket: domain.BucketPayrollExpense},
		{Prefix: "6", Bucket: domain.BucketExpense},
		{Prefix: "7", Bucket: domain.BucketRevenue},
	})
}

// rulesFile is the YAML shape of an external rules override file.
type rulesFile struct {
	Rules []PrefixRule `yaml:"rules"`
}

// LoadRulesFile loads classification rules from a YAML file. Used when a
// deployment needs a chart-of-accounts mapping different from the built-in
// defaults.
func LoadRulesFile(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rules file %s contains no rules", path)
	}

	for _, r := range f.Rules {
		if r.Prefix == "" {
			return nil, fmt.Errorf("rules file %s contains a rule with an empty prefix", path)
		}
		switch r.Bucket {
		case domain.BucketRevenue, domain.BucketExpense, domain.BucketPayrollExpense, domain.BucketTreasury:
		default:
			return nil, fmt.Errorf("rules file %s references unknown bucket %q", path, r.Bucket)
		}
	}

	return NewRules(f.Rules), nil
}
