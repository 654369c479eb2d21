package models

// SecurityFinding is produced by the security policy scanner when a command
// matches a dangerous pattern and none of the rule's exceptions.
type SecurityFinding struct {
	Rule           string `json:"rule"`
	Severity       string `json:"severity"`
	Command        string `json:"command"`
	Line           int    `json:"line,omitempty"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

// SecurityReport buckets findings by severity and carries the exit status
// convention: 0 clean, 1 critical findings present, 2 only non-critical.
type SecurityReport struct {
	Findings []SecurityFinding `json:"findings"`
}

// CountBySeverity returns the number of findings at the given severity.
func (sr SecurityReport) CountBySeverity(severity string) int {
	n := 0
	for _, f := range sr.Findings {
		if f.Severity == severity {
			n++
		}
	}
	return n
}

// ExitStatus implements the scanner exit-status convention.
func (sr SecurityReport) ExitStatus() int {
	if len(sr.Findings) == 0 {
		return 0
	}
	if sr.CountBySeverity(SeverityCritical) > 0 {
		return 1
	}
	return 2
}
