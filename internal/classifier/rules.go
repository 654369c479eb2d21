package classifier

import (
	"regexp"
	"time"

	"github.com/harrison/docproof/internal/models"
)

// TypeRule maps a command text pattern to a command type and execution
// policy. Rules are evaluated in table order and the first match wins, so
// more specific patterns must precede generic ones.
type TypeRule struct {
	Name         string
	Pattern      *regexp.Regexp
	Type         string
	AllowFailure bool
	Timeout      time.Duration
}

// Per-type default timeouts. Package installs get the longest allowance,
// filesystem and process control the shortest.
const (
	TimeoutPackageInstall = 5 * time.Minute
	TimeoutVersionControl = 60 * time.Second
	TimeoutToolInvocation = 60 * time.Second
	TimeoutGeneral        = 30 * time.Second
	TimeoutFilesystem     = 15 * time.Second
	TimeoutProcessControl = 10 * time.Second
	TimeoutNavigation     = 5 * time.Second
	TimeoutUIOnly         = 10 * time.Second
	TimeoutPlaceholder    = time.Second
)

// placeholderRules detect example/illustrative text that must never execute:
// unresolved angle-bracket tokens, bracketed instruction text, heredoc
// terminators, and well-known example path patterns.
var placeholderRules = []*regexp.Regexp{
	regexp.MustCompile(`<[A-Za-z][A-Za-z0-9_ .-]*>`),
	regexp.MustCompile(`\[(?:your|insert|replace|choose|select)[^\]]*\]`),
	regexp.MustCompile(`(?i)^\s*EOF\s*$`),
	regexp.MustCompile(`(?i)\bEOF$`),
	regexp.MustCompile(`/path/to/`),
	regexp.MustCompile(`(?i)\byour-?(username|project|repo|token|key)\b`),
	regexp.MustCompile(`\.\.\.\s*$`),
}

// dangerousHints mark commands worth flagging during classification even
// before the security scanner runs. Classification only sets the flag; policy
// decisions stay with the scanner and executor.
var dangerousHints = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+(-[a-zA-Z]*r[a-zA-Z]*f|-[a-zA-Z]*f[a-zA-Z]*r)\b`),
	regexp.MustCompile(`\bsudo\b`),
	regexp.MustCompile(`\bchmod\s+777\b`),
	regexp.MustCompile(`\bcurl\b.*\|\s*(ba)?sh\b`),
	regexp.MustCompile(`\bdd\s+if=`),
}

// typeRules is the ordered classification table. UI-only commands, tool
// invocations whose executable may be absent, process control against
// possibly-missing processes and filesystem operations on optional assets are
// environment-dependent in a sandbox, so they carry AllowFailure.
var typeRules = []TypeRule{
	{
		Name:    "package-install",
		Pattern: regexp.MustCompile(`^(npm\s+(install|i|ci|uninstall|update|upgrade)\b|yarn\s+(add|global|remove)\b|pnpm\s+(add|install)\b|pip3?\s+install\b|apt(-get)?\s+(install|remove|purge)\b|brew\s+(install|uninstall|upgrade)\b|yum\s+install\b|gem\s+install\b)`),
		Type:    models.TypePackageInstall,
		Timeout: TimeoutPackageInstall,
	},
	{
		Name:    "version-control",
		Pattern: regexp.MustCompile(`^git\s+`),
		Type:    models.TypeVersionControl,
		Timeout: TimeoutVersionControl,
	},
	{
		Name:         "process-control",
		Pattern:      regexp.MustCompile(`^(kill|pkill|killall|ps|pgrep|top|htop)\b`),
		Type:         models.TypeProcessControl,
		AllowFailure: true,
		Timeout:      TimeoutProcessControl,
	},
	{
		Name:    "navigation",
		Pattern: regexp.MustCompile(`^(cd|pwd|pushd|popd|ls|tree)\b`),
		Type:    models.TypeNavigation,
		Timeout: TimeoutNavigation,
	},
	{
		Name:         "ui-only",
		Pattern:      regexp.MustCompile(`^(open|xdg-open|start|explorer)\b`),
		Type:         models.TypeUIOnly,
		AllowFailure: true,
		Timeout:      TimeoutUIOnly,
	},
	{
		Name:         "filesystem",
		Pattern:      regexp.MustCompile(`^(mkdir|cp|mv|rm|touch|chmod|chown|ln|cat|head|tail|find|unzip|tar)\b`),
		Type:         models.TypeFilesystem,
		AllowFailure: true,
		Timeout:      TimeoutFilesystem,
	},
	{
		Name:         "tool-invocation",
		Pattern:      regexp.MustCompile(`^(claude|code|node|npx|deno|bun|docker|kubectl|make|python3?)\b`),
		Type:         models.TypeToolInvocation,
		AllowFailure: true,
		Timeout:      TimeoutToolInvocation,
	},
}
