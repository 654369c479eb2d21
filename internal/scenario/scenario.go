// Package scenario defines named execution profiles and the deterministic
// step-inclusion predicate used by both the executor and the cross-run
// validator. The keyword tables are data, not code, so they can be tested in
// isolation and extended from a YAML file without touching executor logic.
package scenario

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pre-setup action identifiers.
const (
	SetupNone       = "none"
	SetupPreInstall = "pre-install"
)

// Scenario is a named execution profile: keyword-based include/exclude rules
// over step section names plus the pre-condition the sandbox must satisfy.
type Scenario struct {
	Name string `yaml:"name"`
	// IncludeKeywords, when non-empty, restricts eligible steps to sections
	// containing at least one keyword. Empty means all sections are eligible
	// unless excluded.
	IncludeKeywords []string `yaml:"include"`
	// ExcludeKeywords removes steps whose section contains any keyword.
	// Exclusion wins over inclusion.
	ExcludeKeywords []string `yaml:"exclude"`
	// Setup names the pre-setup action run before execution.
	Setup string `yaml:"setup"`
}

// Includes reports whether a step with the given section name is eligible
// under this scenario. The decision is deterministic given (scenario,
// section): it depends on nothing else.
func (s Scenario) Includes(section string) bool {
	lower := strings.ToLower(section)
	for _, kw := range s.ExcludeKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}
	if len(s.IncludeKeywords) == 0 {
		return true
	}
	for _, kw := range s.IncludeKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// removalVocabulary is shared by built-in scenarios that never run teardown
// sections, and by the validator's coverage heuristics.
var removalVocabulary = []string{"uninstall", "remove", "removal", "rollback", "downgrade", "cleanup", "teardown"}

// RemovalSection reports whether a section name belongs to the removal
// vocabulary.
func RemovalSection(section string) bool {
	lower := strings.ToLower(section)
	for _, kw := range removalVocabulary {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Builtin returns the default scenario table.
func Builtin() []Scenario {
	return []Scenario{
		{
			Name:            "fresh-install",
			ExcludeKeywords: append([]string(nil), removalVocabulary...),
			Setup:           SetupNone,
		},
		{
			Name:            "reinstall",
			ExcludeKeywords: []string{"rollback", "downgrade"},
			Setup:           SetupPreInstall,
		},
		{
			Name:            "upgrade",
			ExcludeKeywords: append([]string(nil), removalVocabulary...),
			Setup:           SetupPreInstall,
		},
	}
}

// Lookup finds a scenario by name in the given table.
func Lookup(table []Scenario, name string) (Scenario, error) {
	for _, s := range table {
		if s.Name == name {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("unknown scenario %q", name)
}

// scenarioFile is the on-disk shape of a scenario table.
type scenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Load reads a scenario table from a YAML file. A missing file returns the
// built-in table without error, matching the config loader's behaviour.
func Load(path string) ([]Scenario, error) {
	if path == "" {
		return Builtin(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Builtin(), nil
		}
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var sf scenarioFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
	}
	if len(sf.Scenarios) == 0 {
		return Builtin(), nil
	}
	for i, s := range sf.Scenarios {
		if s.Name == "" {
			return nil, fmt.Errorf("scenario %d: name is required", i)
		}
		if s.Setup == "" {
			sf.Scenarios[i].Setup = SetupNone
		}
	}
	return sf.Scenarios, nil
}
