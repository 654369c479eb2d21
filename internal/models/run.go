package models

import "time"

// Result status constants shared by step and command results.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Run is one recorded execution of a guide suite under a single
// (platform, runtime-version, scenario) key. A Run is append-only during
// execution and frozen once the report phase starts.
type Run struct {
	ID             string       `json:"id"`
	GuideSource    string       `json:"guideSource"`
	Scenario       string       `json:"scenario"`
	Platform       string       `json:"platform"`
	RuntimeVersion string       `json:"runtimeVersion"`
	StartTime      time.Time    `json:"startTime"`
	EndTime        time.Time    `json:"endTime"`
	Steps          []StepResult `json:"steps"`
	Summary        RunSummary   `json:"summary"`
	// Environment holds free-form metadata about the sandbox (root path,
	// scoped variables, host details).
	Environment map[string]string `json:"environment,omitempty"`
}

// RunSummary aggregates step outcomes for a run.
type RunSummary struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// StepResult records the outcome of one step within a run. Synthetic results
// produced by the post-execution validate phase are tagged Synthetic.
type StepResult struct {
	Section   string          `json:"section"`
	Title     string          `json:"name"`
	Status    string          `json:"status"`
	Error     string          `json:"error,omitempty"`
	StartTime time.Time       `json:"startTime"`
	EndTime   time.Time       `json:"endTime"`
	Commands  []CommandResult `json:"commands,omitempty"`
	Synthetic bool            `json:"synthetic,omitempty"`
}

// Key returns the (section, title) identity used for cross-run matching.
func (sr StepResult) Key() string {
	return sr.Section + " / " + sr.Title
}

// CommandResult records the outcome of one command execution.
type CommandResult struct {
	Command   string        `json:"command"`
	Status    string        `json:"status"`
	ExitCode  int           `json:"exitCode"`
	Error     string        `json:"error,omitempty"`
	Output    string        `json:"output,omitempty"`
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Duration  time.Duration `json:"duration"`
	TimedOut  bool          `json:"timedOut,omitempty"`
}

// ComputeSummary recounts the summary from step results. Synthetic
// validation results are diagnostics about the environment, not guide
// outcomes, so they are excluded from the counts.
func (r *Run) ComputeSummary() {
	var s RunSummary
	for _, step := range r.Steps {
		if step.Synthetic {
			continue
		}
		switch step.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		}
	}
	r.Summary = s
}

// StepFor returns the step result matching the given (section, title) key,
// or nil if the run does not contain it.
func (r *Run) StepFor(section, title string) *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Section == section && r.Steps[i].Title == title {
			return &r.Steps[i]
		}
	}
	return nil
}
