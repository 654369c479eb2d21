package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/docproof/internal/artifact"
	"github.com/harrison/docproof/internal/config"
	"github.com/harrison/docproof/internal/executor"
	"github.com/harrison/docproof/internal/history"
	"github.com/harrison/docproof/internal/logger"
	"github.com/harrison/docproof/internal/models"
	"github.com/harrison/docproof/internal/parser"
	"github.com/harrison/docproof/internal/scenario"
)

// NewRunCommand creates the run command: one scenario, one sandbox, one run
// artifact.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <guide-file>",
		Short: "Execute a guide under one scenario in an isolated sandbox",
		Long: `Execute a guide's eligible steps under the named scenario inside an
isolated sandbox and persist a run artifact.

Configuration is loaded from .docproof/config.yaml if present; flags
override file values.

Exit status: 0 when every step passed or was skipped as expected, 1 when
any step failed.

Examples:
  docproof run --scenario fresh-install docs/INSTALL.md
  docproof run --scenario reinstall --runtime-version node-22 docs/INSTALL.md
  docproof run --results-dir ./results --run-dir ./run1 docs/INSTALL.md`,
		Args: cobra.ExactArgs(1),
		RunE: runCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: "+config.DefaultPath+")")
	cmd.Flags().String("scenario", "fresh-install", "Scenario to execute")
	cmd.Flags().String("scenario-file", "", "YAML scenario table overriding the built-ins")
	cmd.Flags().String("results-dir", "", "Directory for run artifacts")
	cmd.Flags().String("run-dir", "", "Per-run state directory (enables resuming)")
	cmd.Flags().String("platform", "", "Platform label (default: host OS)")
	cmd.Flags().String("runtime-version", "", "Runtime version label")
	cmd.Flags().String("log-level", "", "Log verbosity (trace, debug, info, warn, error)")
	cmd.Flags().Bool("no-history", false, "Skip recording the run in the history database")

	return cmd
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	scenarioName, _ := cmd.Flags().GetString("scenario")
	scenarioFile, _ := cmd.Flags().GetString("scenario-file")
	if scenarioFile == "" {
		scenarioFile = cfg.ScenarioFile
	}
	scenarios, err := scenario.Load(scenarioFile)
	if err != nil {
		return err
	}
	sc, err := scenario.Lookup(scenarios, scenarioName)
	if err != nil {
		return err
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

	runDir, _ := cmd.Flags().GetString("run-dir")
	if runDir == "" {
		runDir = filepath.Join(cfg.WorkDir, fmt.Sprintf("%s-%d", sc.Name, time.Now().UnixNano()))
	}

	log := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	timeouts, err := cfg.TimeoutOverrides()
	if err != nil {
		return err
	}

	runner := executor.NewRunner(sc, runDir, store)
	runner.Logger = log
	runner.ProbeCommand = cfg.ProbeCommand
	runner.Timeouts = timeouts
	if cfg.Platform != "" {
		runner.Platform = cfg.Platform
	}
	if cfg.RuntimeVersion != "" {
		runner.RuntimeVersion = cfg.RuntimeVersion
	}

	noHistory, _ := cmd.Flags().GetBool("no-history")
	if !noHistory {
		hs, err := history.NewStore(cfg.HistoryDB)
		if err != nil {
			log.LogWarn(fmt.Sprintf("history store unavailable: %v", err))
		} else {
			defer hs.Close()
			runner.History = hs
		}
	}

	run, err := runner.Run(cmd.Context(), guide)
	if err != nil {
		return err
	}

	printRunSummary(cmd, run)
	if code := executor.ExitStatus(run); code != 0 {
		return &ExitCodeError{Code: code, Message: fmt.Sprintf("%d step(s) failed", run.Summary.Failed)}
	}
	return nil
}

func printRunSummary(cmd *cobra.Command, run *models.Run) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nRun %s (%s on %s, runtime %s)\n", run.ID, run.Scenario, run.Platform, run.RuntimeVersion)
	fmt.Fprintf(out, "  Passed:  %d\n", run.Summary.Passed)
	fmt.Fprintf(out, "  Failed:  %d\n", run.Summary.Failed)
	fmt.Fprintf(out, "  Skipped: %d\n", run.Summary.Skipped)
	fmt.Fprintf(out, "  Duration: %s\n", run.EndTime.Sub(run.StartTime).Round(time.Millisecond))
}

// loadConfigFromFlags loads the config file and applies flag overrides
// shared by the execution commands.
func loadConfigFromFlags(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.DefaultPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("results-dir"); v != "" {
		cfg.ResultsDir = v
	}
	if v, _ := cmd.Flags().GetString("platform"); v != "" {
		cfg.Platform = v
	}
	if v, _ := cmd.Flags().GetString("runtime-version"); v != "" {
		cfg.RuntimeVersion = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if cfg.Platform == "" {
		cfg.Platform = runtime.GOOS
	}
	return cfg, nil
}
