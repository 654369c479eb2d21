package models

import "time"

// Command type constants assigned by the classifier.
const (
	TypePackageInstall = "package-install"
	TypeVersionControl = "version-control"
	TypeProcessControl = "process-control"
	TypeFilesystem     = "filesystem"
	TypeNavigation     = "navigation"
	TypePlaceholder    = "placeholder"
	TypeUIOnly         = "ui-only"
	TypeToolInvocation = "tool-invocation"
	TypeGeneral        = "general"
)

// Validation kinds attached to commands during parsing.
const (
	ValidationExpectedOutput = "expected-output"
	ValidationDocLink        = "doc-link"
)

// Guide is a prose document under test. Immutable once loaded.
type Guide struct {
	Source string // source identifier (file path or label)
	Text   string // raw guide text
	Steps  []Step // ordered steps extracted by the parser
}

// Step is a titled unit of a guide. Steps preserve document order; identity
// for cross-run matching is the (Section, Title) pair, not the position, so
// reordering edits do not break historical comparisons.
type Step struct {
	Section     string       // enclosing top-level section heading
	Title       string       // step sub-heading
	Description string       // accumulated free text (non-command content)
	Commands    []Command    // ordered executable lines
	Validations []Validation // step-level validations (doc links etc.)
	Line        int          // 1-based source line of the step heading
}

// Key returns the cross-run matching identity for the step.
func (s Step) Key() string {
	return s.Section + " / " + s.Title
}

// Command is one executable line extracted from a step. A Command is
// immutable after classification.
type Command struct {
	Raw          string        // command text as written in the guide
	Comment      string        // trailing inline comment, if any
	Type         string        // inferred type (TypePackageInstall etc.)
	Dangerous    bool          // matched a dangerous pattern during classification
	AllowFailure bool          // non-zero exit does not abort the step
	Skip         bool          // must never execute (placeholders)
	Timeout      time.Duration // per-command execution deadline
	Line         int           // 1-based source line
	Validations  []Validation  // validations attached to this command
}

// Validation is an expected-output assertion or documentation link check
// attached to a command or step.
type Validation struct {
	Kind     string // ValidationExpectedOutput or ValidationDocLink
	Expected string // expected output fragment or URL
	Line     int
}

// CommandCount returns the total number of commands across all steps.
func (g *Guide) CommandCount() int {
	n := 0
	for _, s := range g.Steps {
		n += len(s.Commands)
	}
	return n
}

// AllCommands returns every command in document order. Used by the security
// scanner, which consumes the parser output independent of execution.
func (g *Guide) AllCommands() []Command {
	var out []Command
	for _, s := range g.Steps {
		out = append(out, s.Commands...)
	}
	return out
}
