// Package classifier assigns each parsed command a type, a safety flag, a
// failure policy and a timeout. Classification is a pure function of the
// command text: the same text always yields the same classification, which
// cross-run comparison depends on.
package classifier

import (
	"github.com/harrison/docproof/internal/models"
)

// Classify returns a classified command for the given raw text and optional
// trailing comment. Policy, in priority order:
//
//  1. Placeholder markup wins over everything: the command must never run.
//  2. First matching type rule from the ordered table.
//  3. Fallback to general with a conservative (not allow-failure) policy.
//
// Timeouts are type-driven only; comments do not override them.
func Classify(raw, comment string) models.Command {
	cmd := models.Command{Raw: raw, Comment: comment}

	if isPlaceholder(raw) {
		cmd.Type = models.TypePlaceholder
		cmd.Skip = true
		cmd.AllowFailure = true
		cmd.Timeout = TimeoutPlaceholder
		cmd.Dangerous = isDangerous(raw)
		return cmd
	}

	for _, rule := range typeRules {
		if rule.Pattern.MatchString(raw) {
			cmd.Type = rule.Type
			cmd.AllowFailure = rule.AllowFailure
			cmd.Timeout = rule.Timeout
			cmd.Dangerous = isDangerous(raw)
			return cmd
		}
	}

	cmd.Type = models.TypeGeneral
	cmd.AllowFailure = false
	cmd.Timeout = TimeoutGeneral
	cmd.Dangerous = isDangerous(raw)
	return cmd
}

func isPlaceholder(raw string) bool {
	for _, pat := range placeholderRules {
		if pat.MatchString(raw) {
			return true
		}
	}
	return false
}

func isDangerous(raw string) bool {
	for _, pat := range dangerousHints {
		if pat.MatchString(raw) {
			return true
		}
	}
	return false
}
