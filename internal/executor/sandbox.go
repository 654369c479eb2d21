package executor

import (
	"fmt"
	"os"
	"path/filepath"
)

// Sandbox is the isolated environment one run owns exclusively: a writable
// root standing in for a home/profile directory plus the scoped variables a
// command sees. Separate runs use separate roots, so runs never share
// mutable state.
type Sandbox struct {
	Root string
	env  map[string]string
}

// requiredDirs are created inside every sandbox root during pre-setup.
var requiredDirs = []string{"home", "home/.claude", "work", "tmp"}

// NewSandbox creates a sandbox rooted at root, creating the required
// directory structure.
func NewSandbox(root string) (*Sandbox, error) {
	sb := &Sandbox{Root: root}
	for _, dir := range requiredDirs {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sandbox directory %s: %w", dir, err)
		}
	}
	sb.env = map[string]string{
		"HOME":   sb.HomeDir(),
		"TMPDIR": filepath.Join(root, "tmp"),
		"PATH":   os.Getenv("PATH"),
		"LANG":   "C.UTF-8",
	}
	return sb, nil
}

// HomeDir returns the sandboxed home directory.
func (sb *Sandbox) HomeDir() string {
	return filepath.Join(sb.Root, "home")
}

// WorkDir returns the directory commands execute in.
func (sb *Sandbox) WorkDir() string {
	return filepath.Join(sb.Root, "work")
}

// Setenv adds or overrides a scoped variable.
func (sb *Sandbox) Setenv(key, value string) {
	sb.env[key] = value
}

// Environ returns the scoped environment as KEY=VALUE pairs. The sandbox is
// an allowlist: host variables other than PATH are not passed through.
func (sb *Sandbox) Environ() []string {
	out := make([]string, 0, len(sb.env))
	for k, v := range sb.env {
		out = append(out, k+"="+v)
	}
	return out
}

// Describe returns environment metadata recorded into the run artifact.
func (sb *Sandbox) Describe() map[string]string {
	meta := map[string]string{"sandboxRoot": sb.Root, "home": sb.HomeDir()}
	return meta
}

// PathExists reports whether a path relative to the sandbox root exists.
func (sb *Sandbox) PathExists(rel string) bool {
	_, err := os.Stat(filepath.Join(sb.Root, rel))
	return err == nil
}
