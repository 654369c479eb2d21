package scenario

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFreshInstallExcludesRemovalSections(t *testing.T) {
	fresh, err := Lookup(Builtin(), "fresh-install")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		section  string
		eligible bool
	}{
		{"Global Installation", true},
		{"Configuration", true},
		{"Method 1: NPM Package Uninstall", false},
		{"Complete Removal", false},
		{"Rollback to a Previous Version", false},
		{"Cleanup After Testing", false},
		{"", true},
	}
	for _, tt := range tests {
		if got := fresh.Includes(tt.section); got != tt.eligible {
			t.Errorf("fresh-install Includes(%q) = %v, want %v", tt.section, got, tt.eligible)
		}
	}
}

func TestBuiltinScenarioSetups(t *testing.T) {
	tests := []struct {
		name  string
		setup string
	}{
		{"fresh-install", SetupNone},
		{"reinstall", SetupPreInstall},
		{"upgrade", SetupPreInstall},
	}
	table := Builtin()
	for _, tt := range tests {
		s, err := Lookup(table, tt.name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", tt.name, err)
		}
		if s.Setup != tt.setup {
			t.Errorf("%s setup = %q, want %q", tt.name, s.Setup, tt.setup)
		}
	}
}

func TestReinstallKeepsUninstallSections(t *testing.T) {
	re, err := Lookup(Builtin(), "reinstall")
	if err != nil {
		t.Fatal(err)
	}
	if !re.Includes("Method 1: NPM Package Uninstall") {
		t.Error("reinstall must be able to exercise uninstall sections")
	}
	if re.Includes("Rollback to 0.9") {
		t.Error("reinstall must still exclude rollback sections")
	}
}

func TestIncludeKeywordsRestrict(t *testing.T) {
	s := Scenario{Name: "install-only", IncludeKeywords: []string{"install"}}
	if !s.Includes("Global Installation") {
		t.Error("matching section must be eligible")
	}
	if s.Includes("Configuration") {
		t.Error("non-matching section must not be eligible when includes are set")
	}
}

func TestExclusionWinsOverInclusion(t *testing.T) {
	s := Scenario{
		Name:            "conflicted",
		IncludeKeywords: []string{"install"},
		ExcludeKeywords: []string{"uninstall"},
	}
	if s.Includes("NPM Package Uninstall") {
		t.Error("exclusion must win when both keyword lists match")
	}
}

func TestIncludesIsCaseInsensitive(t *testing.T) {
	fresh, _ := Lookup(Builtin(), "fresh-install")
	if fresh.Includes("COMPLETE UNINSTALL") {
		t.Error("keyword matching must ignore case")
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup(Builtin(), "chaos-monkey"); err == nil {
		t.Error("expected error for unknown scenario")
	}
}

func TestRemovalSection(t *testing.T) {
	if !RemovalSection("Method 2: Complete Removal") {
		t.Error("expected removal vocabulary match")
	}
	if RemovalSection("Getting Started") {
		t.Error("unexpected removal vocabulary match")
	}
}

func TestLoadMissingFileReturnsBuiltins(t *testing.T) {
	table, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(table) != len(Builtin()) {
		t.Errorf("expected built-in table, got %d scenarios", len(table))
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	content := `scenarios:
  - name: docs-only
    include: [documentation]
  - name: teardown
    exclude: [install]
    setup: pre-install
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(table) != 2 {
		t.Fatalf("expected 2 scenarios, got %d", len(table))
	}
	if table[0].Setup != SetupNone {
		t.Errorf("missing setup must default to %q, got %q", SetupNone, table[0].Setup)
	}
	if table[1].Setup != SetupPreInstall {
		t.Errorf("setup = %q, want %q", table[1].Setup, SetupPreInstall)
	}
	if !table[0].Includes("API Documentation") || table[0].Includes("Install") {
		t.Error("include keywords not applied")
	}
}

func TestLoadRejectsUnnamedScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	if err := os.WriteFile(path, []byte("scenarios:\n  - include: [x]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for scenario without a name")
	}
}
