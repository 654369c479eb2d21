package executor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestSandbox(t *testing.T) *Sandbox {
	t.Helper()
	sb, err := NewSandbox(filepath.Join(t.TempDir(), "sandbox"))
	if err != nil {
		t.Fatal(err)
	}
	return sb
}

func TestInvokeCapturesOutputAndExitCode(t *testing.T) {
	si := NewShellInvoker(newTestSandbox(t))

	inv := si.Invoke(context.Background(), "echo hello; echo err >&2", 10*time.Second)
	if inv.ExitCode != 0 || inv.Err != nil {
		t.Fatalf("exit = %d err = %v", inv.ExitCode, inv.Err)
	}
	if !strings.Contains(inv.Output, "hello") || !strings.Contains(inv.Output, "err") {
		t.Errorf("combined output = %q, want both streams", inv.Output)
	}
}

func TestInvokeNonZeroExit(t *testing.T) {
	si := NewShellInvoker(newTestSandbox(t))

	inv := si.Invoke(context.Background(), "exit 3", 10*time.Second)
	if inv.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", inv.ExitCode)
	}
	if inv.Err == nil {
		t.Error("expected error for non-zero exit")
	}
	if inv.TimedOut {
		t.Error("must not be flagged as timed out")
	}
}

func TestInvokeTimeout(t *testing.T) {
	si := NewShellInvoker(newTestSandbox(t))

	start := time.Now()
	inv := si.Invoke(context.Background(), "sleep 5", 200*time.Millisecond)
	if !inv.TimedOut {
		t.Fatal("expected timeout")
	}
	if inv.ExitCode != -1 {
		t.Errorf("exit code = %d, want -1", inv.ExitCode)
	}
	var te *TimeoutError
	if !errors.As(inv.Err, &te) {
		t.Fatalf("error type = %T, want *TimeoutError", inv.Err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout took %v, the process group must be killed promptly", elapsed)
	}
}

func TestInvokeRunsInSandboxWorkDir(t *testing.T) {
	sb := newTestSandbox(t)
	si := NewShellInvoker(sb)

	inv := si.Invoke(context.Background(), "pwd", 10*time.Second)
	if inv.ExitCode != 0 {
		t.Fatalf("pwd failed: %v", inv.Err)
	}

	got, err := filepath.EvalSymlinks(strings.TrimSpace(inv.Output))
	if err != nil {
		t.Fatal(err)
	}
	want, err := filepath.EvalSymlinks(sb.WorkDir())
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("working dir = %q, want %q", got, want)
	}
}

func TestInvokeSeesSandboxHome(t *testing.T) {
	sb := newTestSandbox(t)
	si := NewShellInvoker(sb)

	inv := si.Invoke(context.Background(), "echo $HOME", 10*time.Second)
	if strings.TrimSpace(inv.Output) != sb.HomeDir() {
		t.Errorf("HOME = %q, want %q", strings.TrimSpace(inv.Output), sb.HomeDir())
	}
}

func TestEnvironIsAnAllowlist(t *testing.T) {
	t.Setenv("DOCPROOF_SECRET", "leaky")
	sb := newTestSandbox(t)
	si := NewShellInvoker(sb)

	inv := si.Invoke(context.Background(), "echo [$DOCPROOF_SECRET]", 10*time.Second)
	if strings.Contains(inv.Output, "leaky") {
		t.Error("host variables outside the allowlist must not leak into commands")
	}
}

func TestSandboxCreatesRequiredDirs(t *testing.T) {
	sb := newTestSandbox(t)
	for _, dir := range requiredDirs {
		if !sb.PathExists(dir) {
			t.Errorf("required directory %s missing", dir)
		}
	}
}

func TestSandboxDescribe(t *testing.T) {
	sb := newTestSandbox(t)
	meta := sb.Describe()
	if meta["sandboxRoot"] != sb.Root {
		t.Errorf("sandboxRoot = %q", meta["sandboxRoot"])
	}
	if meta["home"] != sb.HomeDir() {
		t.Errorf("home = %q", meta["home"])
	}
}
