// Package security flags guide commands matching a table of dangerous
// patterns. The scanner consumes the parser's command list directly and is
// independent of scenarios and execution.
package security

import (
	"github.com/harrison/docproof/internal/models"
)

// Scan applies the rule table to every command and returns the
// severity-bucketed report. Placeholder commands are still scanned: an
// example that tells the reader to run something destructive is a finding
// even though the executor would never run it.
func Scan(commands []models.Command, rules []Rule) models.SecurityReport {
	var report models.SecurityReport
	for _, cmd := range commands {
		for _, rule := range rules {
			if !rule.Pattern.MatchString(cmd.Raw) {
				continue
			}
			if matchesException(rule, cmd.Raw) {
				continue
			}
			report.Findings = append(report.Findings, models.SecurityFinding{
				Rule:           rule.Name,
				Severity:       rule.Severity,
				Command:        cmd.Raw,
				Line:           cmd.Line,
				Description:    rule.Description,
				Recommendation: rule.Recommendation,
			})
		}
	}
	return report
}

// ScanGuide is a convenience wrapper over the guide's full command list.
func ScanGuide(guide *models.Guide, rules []Rule) models.SecurityReport {
	return Scan(guide.AllCommands(), rules)
}

func matchesException(rule Rule, raw string) bool {
	for _, exc := range rule.Exceptions {
		if exc.MatchString(raw) {
			return true
		}
	}
	return false
}
