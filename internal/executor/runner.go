// Package executor replays a classified guide suite for one scenario inside
// an isolated sandbox and records a run artifact. Within a run execution is
// strictly sequential: one command at a time, in document order, blocking
// until exit or timeout. Across runs there is no shared mutable state, so
// independent runs may execute in parallel with distinct sandbox roots.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/docproof/internal/artifact"
	"github.com/harrison/docproof/internal/filelock"
	"github.com/harrison/docproof/internal/models"
	"github.com/harrison/docproof/internal/scenario"
)

// Execution phases, in order. Each phase persists its completion so an
// interrupted process can resume without re-executing commands.
const (
	PhasePreSetup = "pre-setup"
	PhaseExecute  = "execute"
	PhaseValidate = "validate"
	PhaseReport   = "report"
)

// syntheticSection is the section name for post-run validation results.
const syntheticSection = "Post-Run Validation"

// Logger receives progress messages. A nil logger discards them.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
}

// HistoryRecorder persists frozen runs for historical queries. Optional.
type HistoryRecorder interface {
	RecordRun(ctx context.Context, run *models.Run) error
}

// Runner executes one scenario for one guide. Create one Runner per run;
// a Runner owns its sandbox exclusively.
type Runner struct {
	Scenario       scenario.Scenario
	Platform       string
	RuntimeVersion string
	RunDir         string // per-run state directory (sandbox + phase state)
	Store          *artifact.Store
	History        HistoryRecorder // optional
	Logger         Logger          // optional
	Invoker        Invoker         // test seam; defaults to ShellInvoker
	// ProbeCommand is the CLI reachability check run during the validate
	// phase, e.g. "claude --version".
	ProbeCommand string
	// Timeouts overrides per-type command timeouts, keyed by command type.
	Timeouts map[string]time.Duration

	clock func() time.Time
}

// NewRunner constructs a Runner for the given scenario and run directory.
func NewRunner(sc scenario.Scenario, runDir string, store *artifact.Store) *Runner {
	return &Runner{
		Scenario:       sc,
		Platform:       runtime.GOOS,
		RuntimeVersion: runtime.Version(),
		RunDir:         runDir,
		Store:          store,
		ProbeCommand:   "claude --version",
		clock:          time.Now,
	}
}

// phaseState is the resumable state persisted inside the run directory after
// each phase completes.
type phaseState struct {
	Completed []string    `json:"completed"`
	Run       *models.Run `json:"run"`
}

func (ps *phaseState) done(phase string) bool {
	for _, p := range ps.Completed {
		if p == phase {
			return true
		}
	}
	return false
}

func (r *Runner) statePath() string {
	return filepath.Join(r.RunDir, "state.json")
}

func (r *Runner) loadState() *phaseState {
	data, err := os.ReadFile(r.statePath())
	if err != nil {
		return &phaseState{}
	}
	var ps phaseState
	if err := json.Unmarshal(data, &ps); err != nil {
		return &phaseState{}
	}
	return &ps
}

func (r *Runner) saveState(ps *phaseState) error {
	data, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal phase state: %w", err)
	}
	return filelock.AtomicWrite(r.statePath(), data)
}

// Run executes all phases for the guide and returns the frozen run. Only a
// pre-setup failure aborts the run; command failures are recorded into the
// run and execution continues with the next step.
func (r *Runner) Run(ctx context.Context, guide *models.Guide) (*models.Run, error) {
	state := r.loadState()
	if state.Run == nil {
		state.Run = &models.Run{
			ID:             uuid.NewString(),
			GuideSource:    guide.Source,
			Scenario:       r.Scenario.Name,
			Platform:       r.Platform,
			RuntimeVersion: r.RuntimeVersion,
			StartTime:      r.clock().UTC(),
		}
	}
	run := state.Run

	sb, err := NewSandbox(filepath.Join(r.RunDir, "sandbox"))
	if err != nil {
		return nil, NewSetupError(r.Scenario.Name, "failed to create sandbox", err)
	}
	if r.Invoker == nil {
		r.Invoker = NewShellInvoker(sb)
	}
	run.Environment = sb.Describe()
	run.Environment["scenario"] = r.Scenario.Name

	if !state.done(PhasePreSetup) {
		if err := r.preSetup(ctx, sb); err != nil {
			// Fatal: no further phases run.
			return nil, err
		}
		state.Completed = append(state.Completed, PhasePreSetup)
		if err := r.saveState(state); err != nil {
			return nil, NewSetupError(r.Scenario.Name, "failed to persist phase state", err)
		}
	}

	if !state.done(PhaseExecute) {
		r.execute(ctx, guide, run)
		state.Completed = append(state.Completed, PhaseExecute)
		if err := r.saveState(state); err != nil {
			return nil, fmt.Errorf("failed to persist phase state: %w", err)
		}
	}

	if !state.done(PhaseValidate) {
		r.validate(ctx, sb, run)
		state.Completed = append(state.Completed, PhaseValidate)
		if err := r.saveState(state); err != nil {
			return nil, fmt.Errorf("failed to persist phase state: %w", err)
		}
	}

	if !state.done(PhaseReport) {
		run.EndTime = r.clock().UTC()
		run.ComputeSummary()
		if r.Store != nil {
			if _, err := r.Store.Save(run); err != nil {
				return run, fmt.Errorf("failed to persist run artifact: %w", err)
			}
		}
		if r.History != nil {
			if err := r.History.RecordRun(ctx, run); err != nil {
				// History is derived state; losing it does not invalidate the
				// artifact, so record the problem and carry on.
				r.logWarn(fmt.Sprintf("failed to record run in history: %v", err))
			}
		}
		state.Completed = append(state.Completed, PhaseReport)
		if err := r.saveState(state); err != nil {
			return run, fmt.Errorf("failed to persist phase state: %w", err)
		}
	}

	return run, nil
}

// preSetup establishes scenario pre-conditions inside the sandbox. Failures
// here are fatal to the whole run.
func (r *Runner) preSetup(ctx context.Context, sb *Sandbox) error {
	switch r.Scenario.Setup {
	case "", scenario.SetupNone:
		return nil
	case scenario.SetupPreInstall:
		// Reinstall/upgrade scenarios start from a machine that already has
		// the artifact under test.
		claudeDir := filepath.Join(sb.HomeDir(), ".claude")
		for _, dir := range []string{claudeDir, filepath.Join(claudeDir, "commands")} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return NewSetupError(r.Scenario.Name, "failed to pre-install artifact", err)
			}
		}
		marker := filepath.Join(claudeDir, "settings.json")
		if err := os.WriteFile(marker, []byte("{}\n"), 0o644); err != nil {
			return NewSetupError(r.Scenario.Name, "failed to write pre-install marker", err)
		}
		return nil
	default:
		return NewSetupError(r.Scenario.Name, fmt.Sprintf("unknown setup action %q", r.Scenario.Setup), nil)
	}
}

// execute iterates steps in document order. Skip decisions are computed for
// every step before any command executes, so a partial run never changes
// later eligibility.
func (r *Runner) execute(ctx context.Context, guide *models.Guide, run *models.Run) {
	eligible := make([]bool, len(guide.Steps))
	for i, step := range guide.Steps {
		eligible[i] = r.Scenario.Includes(step.Section)
	}

	for i, step := range guide.Steps {
		if run.StepFor(step.Section, step.Title) != nil {
			// Resumed run: never execute a step twice.
			continue
		}

		sr := models.StepResult{
			Section:   step.Section,
			Title:     step.Title,
			StartTime: r.clock().UTC(),
		}

		if !eligible[i] {
			sr.Status = models.StatusSkipped
			sr.EndTime = r.clock().UTC()
			run.Steps = append(run.Steps, sr)
			r.logDebug(fmt.Sprintf("skipping step %q (section %q excluded by scenario %s)", step.Title, step.Section, r.Scenario.Name))
			continue
		}

		r.logInfo(fmt.Sprintf("executing step %q (%d command(s))", step.Title, len(step.Commands)))
		r.executeStep(ctx, step, &sr)
		sr.EndTime = r.clock().UTC()
		run.Steps = append(run.Steps, sr)
	}
}

// executeStep runs the step's commands strictly in order. A failing
// non-allow-failure command aborts the remainder of this step only.
func (r *Runner) executeStep(ctx context.Context, step models.Step, sr *models.StepResult) {
	aborted := false
	failed := false

	for _, cmd := range step.Commands {
		cr := models.CommandResult{Command: cmd.Raw, StartTime: r.clock().UTC()}

		switch {
		case cmd.Skip:
			// Placeholders must never reach the invoker.
			cr.Status = models.StatusSkipped
			cr.Error = "placeholder command: not executed"
		case aborted:
			cr.Status = models.StatusSkipped
			cr.Error = "skipped: earlier command in step failed"
		default:
			inv := r.Invoker.Invoke(ctx, cmd.Raw, r.timeoutFor(cmd))
			cr.Output = inv.Output
			cr.ExitCode = inv.ExitCode
			cr.Duration = inv.Duration
			cr.TimedOut = inv.TimedOut

			if inv.ExitCode == 0 && inv.Err == nil {
				cr.Status = models.StatusPassed
				checkExpectedOutput(cmd, &cr)
			} else {
				cr.Status = models.StatusFailed
				if inv.Err != nil {
					cr.Error = inv.Err.Error()
				} else {
					cr.Error = fmt.Sprintf("exit code %d", inv.ExitCode)
				}
				if !cmd.AllowFailure {
					failed = true
					aborted = true
					r.logError(fmt.Sprintf("command failed, aborting step %q: %s", step.Title, cmd.Raw))
				} else {
					r.logWarn(fmt.Sprintf("allow-failure command failed: %s", cmd.Raw))
				}
			}
		}

		cr.EndTime = r.clock().UTC()
		sr.Commands = append(sr.Commands, cr)
	}

	if failed {
		sr.Status = models.StatusFailed
		sr.Error = "one or more commands failed"
	} else {
		sr.Status = models.StatusPassed
	}
}

// timeoutFor applies config-level per-type overrides over the classified
// timeout.
func (r *Runner) timeoutFor(cmd models.Command) time.Duration {
	if t, ok := r.Timeouts[cmd.Type]; ok {
		return t
	}
	return cmd.Timeout
}

// checkExpectedOutput verifies `# Should show:` assertions against the
// captured output. A mismatch is recorded on the result but does not flip
// the status: documented expected output is frequently illustrative
// (versions, paths), so the mismatch is surfaced for the validator instead
// of failing the command.
func checkExpectedOutput(cmd models.Command, cr *models.CommandResult) {
	for _, v := range cmd.Validations {
		if v.Kind != models.ValidationExpectedOutput {
			continue
		}
		if !strings.Contains(strings.ToLower(cr.Output), strings.ToLower(v.Expected)) {
			cr.Error = fmt.Sprintf("expected output %q not observed", v.Expected)
			return
		}
	}
}

// validate runs the fixed post-execution checks, independent of the guide's
// own steps, contributing synthetic step results.
func (r *Runner) validate(ctx context.Context, sb *Sandbox, run *models.Run) {
	checks := []struct {
		title string
		check func() (bool, string)
	}{
		{
			title: "Artifact presence",
			check: func() (bool, string) {
				if sb.PathExists("home/.claude") {
					return true, ""
				}
				return false, "expected home/.claude to exist after execution"
			},
		},
		{
			title: "Directory structure",
			check: func() (bool, string) {
				for _, dir := range requiredDirs {
					if !sb.PathExists(dir) {
						return false, fmt.Sprintf("sandbox directory %s missing", dir)
					}
				}
				return true, ""
			},
		},
		{
			title: "CLI reachability",
			check: func() (bool, string) {
				inv := r.Invoker.Invoke(ctx, r.ProbeCommand, 15*time.Second)
				if inv.ExitCode == 0 {
					return true, ""
				}
				return false, fmt.Sprintf("probe %q failed: exit code %d", r.ProbeCommand, inv.ExitCode)
			},
		},
	}

	for _, c := range checks {
		sr := models.StepResult{
			Section:   syntheticSection,
			Title:     c.title,
			StartTime: r.clock().UTC(),
			Synthetic: true,
		}
		ok, detail := c.check()
		if ok {
			sr.Status = models.StatusPassed
		} else {
			// Synthetic checks are environment probes, not guide defects.
			// They are excluded from the run summary; the validator weighs
			// them separately.
			sr.Status = models.StatusFailed
			sr.Error = detail
		}
		sr.EndTime = r.clock().UTC()
		run.Steps = append(run.Steps, sr)
	}
}

// ExitStatus implements the executor process exit convention: 0 when every
// step passed or was skipped as expected, 1 otherwise.
func ExitStatus(run *models.Run) int {
	if run.Summary.Failed > 0 {
		return 1
	}
	return 0
}

func (r *Runner) logDebug(msg string) {
	if r.Logger != nil {
		r.Logger.LogDebug(msg)
	}
}

func (r *Runner) logInfo(msg string) {
	if r.Logger != nil {
		r.Logger.LogInfo(msg)
	}
}

func (r *Runner) logWarn(msg string) {
	if r.Logger != nil {
		r.Logger.LogWarn(msg)
	}
}

func (r *Runner) logError(msg string) {
	if r.Logger != nil {
		r.Logger.LogError(msg)
	}
}
