package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrison/docproof/internal/models"
	"github.com/harrison/docproof/internal/parser"
	"github.com/harrison/docproof/internal/security"
)

// NewScanCommand creates the scan command: apply the security policy table
// to a guide's commands without executing anything.
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <guide-file>",
		Short: "Scan a guide's commands against the security policy table",
		Long: `Parse the guide and flag commands matching dangerous patterns.
Commands matching a rule's documented exceptions are not flagged.

Exit status: 0 no findings, 1 critical findings present, 2 only
non-critical findings.

Examples:
  docproof scan docs/INSTALL.md
  docproof scan --json docs/INSTALL.md`,
		Args: cobra.ExactArgs(1),
		RunE: scanCommand,
	}
	cmd.Flags().Bool("json", false, "Emit findings as JSON")
	return cmd
}

func scanCommand(cmd *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read guide %s: %w", args[0], err)
	}

	guide := parser.NewGuideParser().Parse(args[0], string(content))
	rep := security.ScanGuide(guide, security.DefaultRules)
	out := cmd.OutOrStdout()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else {
		printFindings(cmd, rep)
	}

	if code := rep.ExitStatus(); code != 0 {
		return &ExitCodeError{Code: code, Message: fmt.Sprintf("%d security finding(s)", len(rep.Findings))}
	}
	return nil
}

func printFindings(cmd *cobra.Command, rep models.SecurityReport) {
	out := cmd.OutOrStdout()
	if len(rep.Findings) == 0 {
		fmt.Fprintln(out, "No security findings.")
		return
	}

	for _, severity := range []string{models.SeverityCritical, models.SeverityHigh, models.SeverityMedium, models.SeverityLow} {
		count := rep.CountBySeverity(severity)
		if count == 0 {
			continue
		}
		fmt.Fprintf(out, "%s (%d):\n", severity, count)
		for _, f := range rep.Findings {
			if f.Severity != severity {
				continue
			}
			fmt.Fprintf(out, "  [%s] line %d: %s\n", f.Rule, f.Line, f.Command)
			fmt.Fprintf(out, "    %s\n", f.Description)
			fmt.Fprintf(out, "    recommendation: %s\n", f.Recommendation)
		}
	}
}
