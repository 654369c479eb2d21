package security

import (
	"regexp"

	"github.com/harrison/docproof/internal/models"
)

// Rule is one entry of the ordered security policy table. A command matching
// Pattern is flagged unless it also matches one of the Exceptions
// (documented, intentional uses).
type Rule struct {
	Name           string
	Pattern        *regexp.Regexp
	Severity       string
	Description    string
	Recommendation string
	Exceptions     []*regexp.Regexp
}

// DefaultRules is the built-in policy table, evaluated in order. Every rule
// is checked against every command; a command can accumulate findings from
// multiple rules.
var DefaultRules = []Rule{
	{
		Name:           "unsafe-rm-commands",
		Pattern:        regexp.MustCompile(`\brm\s+(-[a-zA-Z]*r[a-zA-Z]*f|-[a-zA-Z]*f[a-zA-Z]*r)\b`),
		Severity:       models.SeverityCritical,
		Description:    "recursive force delete can destroy data outside the intended target",
		Recommendation: "scope the delete to a specific known directory, or document a safer removal procedure",
		Exceptions: []*regexp.Regexp{
			// Guides legitimately instruct removing their own config dir.
			regexp.MustCompile(`rm\s+-[a-zA-Z]*\s+(~|\$HOME)?/?\S*\.claude\b`),
			regexp.MustCompile(`rm\s+-[a-zA-Z]*\s+\S*node_modules\b`),
		},
	},
	{
		Name:           "curl-pipe-shell",
		Pattern:        regexp.MustCompile(`\b(curl|wget)\b.*\|\s*(ba|z)?sh\b`),
		Severity:       models.SeverityCritical,
		Description:    "piping a downloaded script straight into a shell executes unreviewed remote code",
		Recommendation: "download the script, review it, then execute it explicitly",
	},
	{
		Name:           "sudo-usage",
		Pattern:        regexp.MustCompile(`\bsudo\b`),
		Severity:       models.SeverityHigh,
		Description:    "elevated privileges amplify the impact of any mistake in the guide",
		Recommendation: "prefer user-level installation paths; call out why elevation is required",
		Exceptions: []*regexp.Regexp{
			regexp.MustCompile(`\bsudo\s+apt(-get)?\s+(install|update)\b`),
		},
	},
	{
		Name:           "world-writable-chmod",
		Pattern:        regexp.MustCompile(`\bchmod\s+(-[a-zA-Z]+\s+)?777\b`),
		Severity:       models.SeverityHigh,
		Description:    "world-writable permissions expose files to tampering by any local user",
		Recommendation: "use the narrowest permissions that work (typically 755 or 644)",
	},
	{
		Name:           "raw-disk-write",
		Pattern:        regexp.MustCompile(`\bdd\s+.*of=/dev/`),
		Severity:       models.SeverityCritical,
		Description:    "writing directly to a block device can destroy the system disk",
		Recommendation: "remove the raw device write or gate it behind explicit confirmation",
	},
	{
		Name:           "credential-in-command",
		Pattern:        regexp.MustCompile(`(?i)\b(password|passwd|token|api[_-]?key|secret)\s*=\s*\S+`),
		Severity:       models.SeverityMedium,
		Description:    "inline credentials end up in shell history and copied documentation",
		Recommendation: "read credentials from the environment or a prompt instead of inlining them",
		Exceptions: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(your|example|placeholder|xxx+|<[^>]+>)`),
		},
	},
	{
		Name:           "disable-tls-verification",
		Pattern:        regexp.MustCompile(`(--insecure\b|--no-check-certificate\b|\bNODE_TLS_REJECT_UNAUTHORIZED=0\b)`),
		Severity:       models.SeverityHigh,
		Description:    "disabling TLS verification allows man-in-the-middle substitution of downloads",
		Recommendation: "fix the certificate problem instead of bypassing verification",
	},
	{
		Name:           "recursive-chown",
		Pattern:        regexp.MustCompile(`\bchown\s+-[a-zA-Z]*R[a-zA-Z]*\s+`),
		Severity:       models.SeverityMedium,
		Description:    "recursive ownership changes on the wrong path can break system packages",
		Recommendation: "restrict ownership changes to the project directory",
	},
}
