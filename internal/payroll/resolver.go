package payroll

import (
	"strings"

	"github.com/clarelia/finboard/internal/domain"
)

// teamTagType is the structured tag type carrying team membership,
// matched case- and accent-insensitively.
const teamTagType = "team"

// RoleResolver attributes an organizational role to an employee for one
// period. Two-tier strategy: the payroll source only began emitting
// structured team tags from the cutover year onward, so earlier periods
// have no reliable structured signal and fall back to the maintained
// rosters.
type RoleResolver struct {
	rosters      Rosters
	cutoverYear  int
	fieldedLabel string // normalized
}

// NewRoleResolver creates a role resolver. fieldedLabel is the tag value
// designating the fielded team (compared after normalization).
func NewRoleResolver(rosters Rosters, cutoverYear int, fieldedLabel string) *RoleResolver {
	return &RoleResolver{
		rosters:      rosters,
		cutoverYear:  cutoverYear,
		fieldedLabel: NormalizeName(fieldedLabel),
	}
}

// Resolve determines the employee's role for a period.
//
// For periods at or after the cutover year, any "team" tag whose value
// matches the fielded label short-circuits to RoleFielded regardless of
// operation order or tag multiplicity. Otherwise (and for all legacy
// periods) the normalized name is looked up in the fielded roster, then
// the office roster; no match yields RoleUnknown.
func (r *RoleResolver) Resolve(employeeName string, ops []domain.RawOperation, periodYear int) domain.Role {
	if periodYear >= r.cutoverYear {
		for _, op := range ops {
			for _, tag := range op.Tags {
				if NormalizeName(tag.Type) != strings.ToUpper(teamTagType) {
					continue
				}
				if NormalizeName(tag.Value) == r.fieldedLabel {
					return domain.RoleFielded
				}
			}
		}
	}

	key := NormalizeName(employeeName)
	if r.rosters.Fielded[key] {
		return domain.RoleFielded
	}
	if r.rosters.Office[key] {
		return domain.RoleOffice
	}
	return domain.RoleUnknown
}
