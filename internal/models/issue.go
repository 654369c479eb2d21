package models

// Severity levels for validation issues and security findings.
const (
	SeverityInfo     = "info"
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Issue classifications produced by the cross-run validator.
const (
	IssueMissingExecution   = "missing-execution"
	IssueExpectedSkip       = "expected-skip"
	IssueExpectedFailure    = "expected-failure"
	IssueUnexpectedFailure  = "unexpected-failure"
	IssueCoverageLimitation = "test-coverage-limitation"
	IssueInconclusive       = "inconclusive"
	IssueLowSuccessRate     = "low-success-rate"
)

// ValidationIssue is a finding about documentation accuracy emitted by the
// cross-run validator. It references a step (and optionally a command) and
// carries supporting evidence.
type ValidationIssue struct {
	Classification string   `json:"classification"`
	Severity       string   `json:"severity"`
	Section        string   `json:"section"`
	Step           string   `json:"step"`
	Command        string   `json:"command,omitempty"`
	Detail         string   `json:"detail"`
	Scenarios      []string `json:"scenarios,omitempty"` // affected scenarios
	Platforms      []string `json:"platforms,omitempty"` // affected platforms
	// Rate is the observed success rate for low-success-rate issues.
	Rate float64 `json:"rate,omitempty"`
}

// SeverityRank orders severities for prioritization; higher is worse.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// IsDefect reports whether the issue indicates a probable documentation
// defect, as opposed to an expected or informational classification.
func (vi ValidationIssue) IsDefect() bool {
	switch vi.Classification {
	case IssueMissingExecution, IssueUnexpectedFailure, IssueLowSuccessRate:
		return true
	}
	return false
}
