// Package config loads docproof configuration from YAML. A missing config
// file is not an error: defaults apply and CLI flags override file values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds docproof configuration options.
type Config struct {
	// ResultsDir is where run artifacts are written.
	ResultsDir string `yaml:"results_dir"`

	// WorkDir is the root under which per-run sandboxes are created.
	WorkDir string `yaml:"work_dir"`

	// HistoryDB is the path to the run history database.
	HistoryDB string `yaml:"history_db"`

	// ScenarioFile optionally overrides the built-in scenario table.
	ScenarioFile string `yaml:"scenario_file"`

	// LogLevel sets logging verbosity (trace, debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// Platform labels runs; defaults to the host OS when empty.
	Platform string `yaml:"platform"`

	// RuntimeVersion labels runs (e.g. a node version under test).
	RuntimeVersion string `yaml:"runtime_version"`

	// ProbeCommand is the CLI reachability check run after execution.
	ProbeCommand string `yaml:"probe_command"`

	// MaxParallelRuns bounds concurrent matrix runs (0 = number of
	// scenarios).
	MaxParallelRuns int `yaml:"max_parallel_runs"`

	// Timeouts overrides the per-type command timeouts, keyed by command
	// type (e.g. "package-install: 10m"). Commands keep their classified
	// timeout for types not listed.
	Timeouts map[string]string `yaml:"timeouts"`
}

// DefaultPath is the conventional config location.
const DefaultPath = ".docproof/config.yaml"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ResultsDir:      ".docproof/results",
		WorkDir:         ".docproof/runs",
		HistoryDB:       ".docproof/history.db",
		LogLevel:        "info",
		ProbeCommand:    "claude --version",
		MaxParallelRuns: 0,
	}
}

// TimeoutOverrides parses the Timeouts table into durations.
func (c *Config) TimeoutOverrides() (map[string]time.Duration, error) {
	if len(c.Timeouts) == 0 {
		return nil, nil
	}
	out := make(map[string]time.Duration, len(c.Timeouts))
	for typ, raw := range c.Timeouts {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q for type %s: %w", raw, typ, err)
		}
		out[typ] = d
	}
	return out, nil
}

// LoadConfig loads configuration from path. A nonexistent file yields
// defaults without error; a malformed file is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}
