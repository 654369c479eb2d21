package executor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"syscall"
	"time"
)

// Invocation is the outcome of one blocking command execution.
type Invocation struct {
	Output   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
	Err      error
}

// Invoker runs one shell command at a time inside a sandbox, blocking until
// process exit or timeout. Implementations must not run commands
// concurrently within one run; later commands may depend on filesystem
// changes made by earlier ones.
type Invoker interface {
	Invoke(ctx context.Context, command string, timeout time.Duration) Invocation
}

// ShellInvoker executes commands via `sh -c` with the sandbox's working
// directory and scoped environment.
type ShellInvoker struct {
	Sandbox *Sandbox
	// Shell overrides the shell binary, defaulting to "sh".
	Shell string
}

// NewShellInvoker creates an invoker bound to a sandbox.
func NewShellInvoker(sb *Sandbox) *ShellInvoker {
	return &ShellInvoker{Sandbox: sb, Shell: "sh"}
}

// Invoke runs the command and blocks until it exits or the timeout elapses.
// On timeout the whole process group is killed and the invocation is marked
// failed; this is the only cancellation mechanism.
func (si *ShellInvoker) Invoke(ctx context.Context, command string, timeout time.Duration) Invocation {
	start := time.Now()

	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shell := si.Shell
	if shell == "" {
		shell = "sh"
	}

	cmd := exec.CommandContext(runCtx, shell, "-c", command)
	cmd.Dir = si.Sandbox.WorkDir()
	cmd.Env = si.Sandbox.Environ()
	// New process group so the entire tree dies on timeout.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		return nil
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	inv := Invocation{
		Output:   buf.String(),
		Duration: time.Since(start),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		inv.TimedOut = true
		inv.ExitCode = -1
		inv.Err = &TimeoutError{Command: command, Timeout: timeout}
		return inv
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			inv.ExitCode = exitErr.ExitCode()
		} else {
			inv.ExitCode = -1
		}
		inv.Err = err
		return inv
	}

	inv.ExitCode = 0
	return inv
}
