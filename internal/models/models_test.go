package models

import (
	"encoding/json"
	"testing"
)

func TestComputeSummaryExcludesSynthetic(t *testing.T) {
	run := Run{
		Steps: []StepResult{
			{Section: "Install", Title: "Install package", Status: StatusPassed},
			{Section: "Install", Title: "Verify", Status: StatusFailed},
			{Section: "Removal", Title: "Uninstall", Status: StatusSkipped},
			{Section: "Post-Run Validation", Title: "CLI reachability", Status: StatusFailed, Synthetic: true},
			{Section: "Post-Run Validation", Title: "Artifact presence", Status: StatusPassed, Synthetic: true},
		},
	}
	run.ComputeSummary()

	if run.Summary.Passed != 1 || run.Summary.Failed != 1 || run.Summary.Skipped != 1 {
		t.Errorf("summary = %+v, want passed=1 failed=1 skipped=1", run.Summary)
	}
}

func TestStepFor(t *testing.T) {
	run := Run{
		Steps: []StepResult{
			{Section: "A", Title: "one", Status: StatusPassed},
			{Section: "B", Title: "one", Status: StatusFailed},
		},
	}

	sr := run.StepFor("B", "one")
	if sr == nil || sr.Status != StatusFailed {
		t.Fatalf("StepFor returned %+v", sr)
	}
	if run.StepFor("C", "one") != nil {
		t.Error("expected nil for absent step")
	}

	// Identity is (section, title): same title in different sections must
	// resolve to distinct results.
	if run.StepFor("A", "one") == run.StepFor("B", "one") {
		t.Error("steps with the same title in different sections must be distinct")
	}
}

func TestStepResultKey(t *testing.T) {
	a := StepResult{Section: "Install", Title: "Verify"}
	b := StepResult{Section: "Upgrade", Title: "Verify"}
	if a.Key() == b.Key() {
		t.Error("keys must differ across sections")
	}
}

func TestStepResultJSONShape(t *testing.T) {
	data, err := json.Marshal(StepResult{Section: "Install", Title: "Verify", Status: StatusPassed})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m["name"] != "Verify" {
		t.Errorf("step title must serialize under \"name\", got %v", m["name"])
	}
}

func TestSeverityRank(t *testing.T) {
	order := []string{SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(order); i++ {
		if SeverityRank(order[i]) <= SeverityRank(order[i-1]) {
			t.Errorf("rank(%s) must exceed rank(%s)", order[i], order[i-1])
		}
	}
}

func TestIssueIsDefect(t *testing.T) {
	tests := []struct {
		classification string
		defect         bool
	}{
		{IssueMissingExecution, true},
		{IssueUnexpectedFailure, true},
		{IssueLowSuccessRate, true},
		{IssueExpectedSkip, false},
		{IssueExpectedFailure, false},
		{IssueCoverageLimitation, false},
		{IssueInconclusive, false},
	}
	for _, tt := range tests {
		vi := ValidationIssue{Classification: tt.classification}
		if vi.IsDefect() != tt.defect {
			t.Errorf("IsDefect(%s) = %v, want %v", tt.classification, vi.IsDefect(), tt.defect)
		}
	}
}

func TestSecurityReportExitStatus(t *testing.T) {
	tests := []struct {
		name       string
		severities []string
		want       int
	}{
		{"clean", nil, 0},
		{"critical present", []string{SeverityMedium, SeverityCritical}, 1},
		{"non-critical only", []string{SeverityMedium, SeverityHigh}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rep SecurityReport
			for _, s := range tt.severities {
				rep.Findings = append(rep.Findings, SecurityFinding{Severity: s})
			}
			if got := rep.ExitStatus(); got != tt.want {
				t.Errorf("ExitStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
