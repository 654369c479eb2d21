package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/harrison/docproof/internal/artifact"
	"github.com/harrison/docproof/internal/config"
	"github.com/harrison/docproof/internal/executor"
	"github.com/harrison/docproof/internal/history"
	"github.com/harrison/docproof/internal/logger"
	"github.com/harrison/docproof/internal/models"
	"github.com/harrison/docproof/internal/parser"
	"github.com/harrison/docproof/internal/scenario"
)

// NewMatrixCommand creates the matrix command: several scenario/runtime
// combinations executed in parallel, each with its own sandbox root. Runs
// share no mutable state, so parallelism needs no coordination beyond the
// artifact store's directory lock.
func NewMatrixCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matrix <guide-file>",
		Short: "Execute a guide across multiple scenarios in parallel",
		Long: `Execute a guide under several scenarios (and optional runtime-version
labels) in one invocation. Each run owns a distinct sandbox root and the
runs execute in parallel.

Exit status: 0 when every run completed with all steps passed or skipped,
1 when any run had failures.

Examples:
  docproof matrix docs/INSTALL.md
  docproof matrix --scenarios fresh-install,reinstall docs/INSTALL.md
  docproof matrix --runtime-versions node-20,node-22 --parallel 2 docs/INSTALL.md`,
		Args: cobra.ExactArgs(1),
		RunE: matrixCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: "+config.DefaultPath+")")
	cmd.Flags().String("scenarios", "", "Comma-separated scenario names (default: all)")
	cmd.Flags().String("scenario-file", "", "YAML scenario table overriding the built-ins")
	cmd.Flags().String("runtime-versions", "", "Comma-separated runtime version labels")
	cmd.Flags().String("results-dir", "", "Directory for run artifacts")
	cmd.Flags().String("platform", "", "Platform label (default: host OS)")
	cmd.Flags().String("runtime-version", "", "Runtime version label (single)")
	cmd.Flags().String("log-level", "", "Log verbosity")
	cmd.Flags().Int("parallel", 0, "Maximum parallel runs (0 = one per combination)")
	cmd.Flags().Bool("no-history", false, "Skip recording runs in the history database")

	return cmd
}

func matrixCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	scenarioFile, _ := cmd.Flags().GetString("scenario-file")
	if scenarioFile == "" {
		scenarioFile = cfg.ScenarioFile
	}
	table, err := scenario.Load(scenarioFile)
	if err != nil {
		return err
	}

	selected := table
	if names, _ := cmd.Flags().GetString("scenarios"); names != "" {
		selected = selected[:0:0]
		for _, name := range strings.Split(names, ",") {
			sc, err := scenario.Lookup(table, strings.TrimSpace(name))
			if err != nil {
				return err
			}
			selected = append(selected, sc)
		}
	}

	versions := []string{cfg.RuntimeVersion}
	if vs, _ := cmd.Flags().GetString("runtime-versions"); vs != "" {
		versions = versions[:0]
		for _, v := range strings.Split(vs, ",") {
			versions = append(versions, strings.TrimSpace(v))
		}
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read guide %s: %w", args[0], err)
	}
	guide := parser.NewGuideParser().Parse(args[0], string(content))

	store, err := artifact.NewStore(cfg.ResultsDir)
	if err != nil {
		return err
	}

	var hs *history.Store
	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		if hs, err = history.NewStore(cfg.HistoryDB); err != nil {
			return fmt.Errorf("history store unavailable: %w", err)
		}
		defer hs.Close()
	}

	log := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	timeouts, err := cfg.TimeoutOverrides()
	if err != nil {
		return err
	}

	parallel, _ := cmd.Flags().GetInt("parallel")
	if parallel <= 0 {
		parallel = cfg.MaxParallelRuns
	}
	if parallel <= 0 {
		parallel = len(selected) * len(versions)
	}

	type combo struct {
		sc      scenario.Scenario
		version string
	}
	var combos []combo
	for _, sc := range selected {
		for _, v := range versions {
			combos = append(combos, combo{sc, v})
		}
	}

	runs := make([]*models.Run, len(combos))
	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(parallel)

	batch := time.Now().UnixNano()
	for i, c := range combos {
		i, c := i, c
		g.Go(func() error {
			runDir := filepath.Join(cfg.WorkDir, fmt.Sprintf("%s-%s-%d-%d", c.sc.Name, sanitizeLabel(c.version), batch, i))
			runner := executor.NewRunner(c.sc, runDir, store)
			runner.Logger = log
			runner.ProbeCommand = cfg.ProbeCommand
			runner.Timeouts = timeouts
			runner.Platform = cfg.Platform
			if c.version != "" {
				runner.RuntimeVersion = c.version
			}
			if hs != nil {
				runner.History = hs
			}

			run, err := runner.Run(gctx, guide)
			if err != nil {
				return fmt.Errorf("run %s/%s: %w", c.sc.Name, c.version, err)
			}
			runs[i] = run
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nMatrix: %d run(s)\n", len(runs))
	failedRuns := 0
	for _, run := range runs {
		status := "ok"
		if run.Summary.Failed > 0 {
			status = fmt.Sprintf("%d failed", run.Summary.Failed)
			failedRuns++
		}
		fmt.Fprintf(out, "  %-16s %-12s passed=%-4d skipped=%-4d %s\n",
			run.Scenario, run.RuntimeVersion, run.Summary.Passed, run.Summary.Skipped, status)
	}

	if failedRuns > 0 {
		return &ExitCodeError{Code: 1, Message: fmt.Sprintf("%d run(s) had failures", failedRuns)}
	}
	return nil
}

func sanitizeLabel(s string) string {
	if s == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '-'
		}
	}, s)
}
