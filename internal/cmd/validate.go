package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrison/docproof/internal/artifact"
	"github.com/harrison/docproof/internal/config"
	"github.com/harrison/docproof/internal/history"
	"github.com/harrison/docproof/internal/models"
	"github.com/harrison/docproof/internal/parser"
	"github.com/harrison/docproof/internal/report"
	"github.com/harrison/docproof/internal/scenario"
	"github.com/harrison/docproof/internal/validator"
)

// NewValidateCommand creates the validate command: cross-reference persisted
// run artifacts against the current guide and report findings. Read-only
// over run data; safe to invoke while runs are still executing elsewhere.
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <guide-file>",
		Short: "Cross-reference run artifacts against a guide and report findings",
		Long: `Load every run artifact from the results directory, cross-reference
them against the guide's parsed steps, and print a prioritized report.

Expected skips and environment-limitation failures are informational;
missing executions, unexpected failures and low success rates are
reported as probable documentation defects.

Exit status: 0 when no defects were found, 1 otherwise.

Examples:
  docproof validate docs/INSTALL.md
  docproof validate --results-dir ./results --json docs/INSTALL.md`,
		Args: cobra.ExactArgs(1),
		RunE: validateCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: "+config.DefaultPath+")")
	cmd.Flags().String("results-dir", "", "Directory containing run artifacts")
	cmd.Flags().String("scenario-file", "", "YAML scenario table overriding the built-ins")
	cmd.Flags().String("history-db", "", "Run history database for per-step trends")
	cmd.Flags().Bool("no-history", false, "Skip the per-step history trends")
	cmd.Flags().Bool("json", false, "Emit the report as JSON")

	return cmd
}

func validateCommand(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.DefaultPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("results-dir"); v != "" {
		cfg.ResultsDir = v
	}

	scenarioFile, _ := cmd.Flags().GetString("scenario-file")
	if scenarioFile == "" {
		scenarioFile = cfg.ScenarioFile
	}
	scenarios, err := scenario.Load(scenarioFile)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read guide %s: %w", args[0], err)
	}
	p := parser.NewGuideParser()
	guide := p.Parse(args[0], string(content))
	for _, h := range p.OutlineMismatches(string(content)) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: heading %q is in the markdown structure but the step scanner treated it as prose\n", h)
	}

	store, err := artifact.NewStore(cfg.ResultsDir)
	if err != nil {
		return err
	}
	runs, loadErrs := store.LoadAll()
	for _, lerr := range loadErrs {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", lerr)
	}
	if len(runs) == 0 {
		return fmt.Errorf("no run artifacts found in %s", cfg.ResultsDir)
	}

	result := validator.Validate(guide, runs, scenarios)
	rep := report.Build(guide, runs, result)

	if hb, _ := cmd.Flags().GetString("history-db"); hb != "" {
		cfg.HistoryDB = hb
	}
	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		// Open only an existing database: validate is read-only and must
		// not create one.
		if _, statErr := os.Stat(cfg.HistoryDB); statErr == nil {
			hs, err := history.NewStore(cfg.HistoryDB)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: history store unavailable: %v\n", err)
			} else {
				defer hs.Close()
				hist, err := historyTrends(cmd.Context(), hs, guide)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: history trends unavailable: %v\n", err)
				} else {
					rep.History = hist
				}
			}
		}
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if err := rep.RenderJSON(cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("failed to render report: %w", err)
		}
	} else {
		rep.RenderText(cmd.OutOrStdout())
	}

	if rep.HasDefects() {
		return &ExitCodeError{Code: 1, Message: fmt.Sprintf("%d probable documentation defect(s)", rep.Summary.Defects)}
	}
	return nil
}

// historyTrends assembles the per-step track record from the history
// database for every step the guide currently documents.
func historyTrends(ctx context.Context, hs *history.Store, guide *models.Guide) (*report.History, error) {
	total, err := hs.RunCount(ctx)
	if err != nil {
		return nil, err
	}

	hist := &report.History{Runs: total}
	for _, step := range guide.Steps {
		outcomes, err := hs.OutcomesForStep(ctx, step.Section, step.Title)
		if err != nil {
			return nil, err
		}
		if len(outcomes) == 0 {
			continue
		}
		counts, err := hs.SuccessCounts(ctx, step.Section, step.Title, "platform")
		if err != nil {
			return nil, err
		}
		trend := report.StepTrend{
			Section:    step.Section,
			Step:       step.Title,
			LastStatus: outcomes[0].Status,
			LastSeen:   outcomes[0].EndTime,
		}
		for _, pf := range counts {
			trend.Passed += pf[0]
			trend.Failed += pf[1]
		}
		hist.Trends = append(hist.Trends, trend)
	}
	return hist, nil
}
