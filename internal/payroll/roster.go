package payroll

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Rosters are the maintained normalized-name lists used as the legacy role
// signal for periods that predate structured team tags. Keys are
// NormalizeName output.
type Rosters struct {
	Fielded map[string]bool
	Office  map[string]bool
}

// NewRosters builds roster sets from raw name lists, normalizing each
// entry so lookups are insensitive to case, accents and spacing.
func NewRosters(fielded, office []string) Rosters {
	r := Rosters{
		Fielded: make(map[string]bool, len(fielded)),
		Office:  make(map[string]bool, len(office)),
	}
	for _, name := range fielded {
		r.Fielded[NormalizeName(name)] = true
	}
	for _, name := range office {
		r.Office[NormalizeName(name)] = true
	}
	return r
}

// rostersFile is the YAML shape of an external roster file.
type rostersFile struct {
	Fielded []string `yaml:"fielded"`
	Office  []string `yaml:"office"`
}

// LoadRostersFile loads the fielded/office rosters from a YAML file.
func LoadRostersFile(path string) (Rosters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rosters{}, fmt.Errorf("failed to read rosters file: %w", err)
	}

	var f rostersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Rosters{}, fmt.Errorf("failed to parse rosters file %s: %w", path, err)
	}

	return NewRosters(f.Fielded, f.Office), nil
}

// diacriticsRemover strips combining marks after NFD decomposition, so
// "Müller" and "MULLER" produce the same key.
var diacriticsRemover = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeName converts an employee name into its canonical roster key:
// uppercase, diacritics stripped, hyphens treated as spaces, runs of
// whitespace collapsed to single spaces, trimmed.
func NormalizeName(name string) string {
	stripped, _, err := transform.String(diacriticsRemover, name)
	if err != nil {
		// Transform failures are limited to malformed UTF-8; fall back to
		// the raw input rather than dropping the employee.
		stripped = name
	}
	stripped = strings.ReplaceAll(stripped, "-", " ")
	return strings.ToUpper(strings.Join(strings.Fields(stripped), " "))
}
