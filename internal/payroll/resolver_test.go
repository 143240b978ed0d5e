package payroll

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clarelia/finboard/internal/domain"
)

const testCutoverYear = 2023

func newTestResolver() *RoleResolver {
	rosters := NewRosters(
		[]string{"Jean-Paul Müller", "Marie Dupont"},
		[]string{"Sophie Bernard"},
	)
	return NewRoleResolver(rosters, testCutoverYear, "Fielded")
}

func opWithTags(tags ...domain.Tag) domain.RawOperation {
	return domain.RawOperation{AccountID: "641000", EmployeeName: "x", Tags: tags}
}

func TestNormalizeName(t *testing.T) {
	// All spellings must collapse to the same roster key.
	variants := []string{
		"Jean-Paul Müller ",
		" JEAN PAUL MULLER",
		"jean   paul muller",
	}
	for _, v := range variants {
		assert.Equal(t, "JEAN PAUL MULLER", NormalizeName(v), "input %q", v)
	}
}

func TestResolve_TagWinsPostCutover(t *testing.T) {
	r := newTestResolver()

	// Tagged fielded, absent from both rosters.
	ops := []domain.RawOperation{opWithTags(domain.Tag{Type: "team", Value: "fielded"})}
	assert.Equal(t, domain.RoleFielded, r.Resolve("Unknown Person", ops, testCutoverYear))

	// Tag type and value matching is case- and accent-insensitive.
	ops = []domain.RawOperation{opWithTags(domain.Tag{Type: "TEAM", Value: "FIÉLDED"})}
	assert.Equal(t, domain.RoleFielded, r.Resolve("Unknown Person", ops, testCutoverYear+1))
}

func TestResolve_TagIgnoredPreCutover(t *testing.T) {
	r := newTestResolver()

	ops := []domain.RawOperation{opWithTags(domain.Tag{Type: "team", Value: "fielded"})}
	assert.Equal(t, domain.RoleUnknown, r.Resolve("Unknown Person", ops, testCutoverYear-1))
}

func TestResolve_RosterFallback(t *testing.T) {
	r := newTestResolver()

	// Roster match pre-cutover, regardless of tags.
	assert.Equal(t, domain.RoleFielded, r.Resolve("JEAN PAUL MULLER", nil, 2020))
	assert.Equal(t, domain.RoleOffice, r.Resolve("sophie bernard", nil, 2020))
	assert.Equal(t, domain.RoleUnknown, r.Resolve("Nobody Known", nil, 2020))

	// Post-cutover without any team tag the rosters still apply.
	assert.Equal(t, domain.RoleOffice, r.Resolve("Sophie Bernard", nil, testCutoverYear))
}

func TestResolve_OrderIndependent(t *testing.T) {
	r := newTestResolver()

	fielded := opWithTags(domain.Tag{Type: "team", Value: "fielded"})
	other := opWithTags(domain.Tag{Type: "site", Value: "hq"})

	a := r.Resolve("Unknown Person", []domain.RawOperation{fielded, other}, testCutoverYear)
	b := r.Resolve("Unknown Person", []domain.RawOperation{other, fielded}, testCutoverYear)

	assert.Equal(t, a, b)
	assert.Equal(t, domain.RoleFielded, a)
}

func TestResolve_NonTeamTagsIgnored(t *testing.T) {
	r := newTestResolver()

	ops := []domain.RawOperation{opWithTags(domain.Tag{Type: "site", Value: "fielded"})}
	assert.Equal(t, domain.RoleUnknown, r.Resolve("Unknown Person", ops, testCutoverYear))
}
