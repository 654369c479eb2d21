package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrison/docproof/internal/parser"
)

// NewParseCommand creates the parse command: a debugging aid that shows the
// step/command model extracted from a guide without executing anything.
func NewParseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <guide-file>",
		Short: "Parse a guide and print its step/command model",
		Long: `Parse a guide into steps and classified commands and print the result.

Parsing never executes anything; this command is safe on any input.

Examples:
  docproof parse docs/INSTALL.md
  docproof parse --json docs/INSTALL.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			return parseCommand(args[0], asJSON, cmd)
		},
	}
	cmd.Flags().Bool("json", false, "Emit the parsed model as JSON")
	return cmd
}

func parseCommand(path string, asJSON bool, cmd *cobra.Command) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read guide %s: %w", path, err)
	}

	p := parser.NewGuideParser()
	guide := p.Parse(path, string(content))
	for _, h := range p.OutlineMismatches(string(content)) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: heading %q is in the markdown structure but the step scanner treated it as prose\n", h)
	}
	out := cmd.OutOrStdout()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(guide)
	}

	fmt.Fprintf(out, "Guide: %s (%d step(s), %d command(s))\n", guide.Source, len(guide.Steps), guide.CommandCount())
	for _, step := range guide.Steps {
		fmt.Fprintf(out, "\n[%s] %s (line %d)\n", step.Section, step.Title, step.Line)
		for _, c := range step.Commands {
			flags := ""
			if c.Skip {
				flags += " skip"
			}
			if c.AllowFailure {
				flags += " allow-failure"
			}
			if c.Dangerous {
				flags += " dangerous"
			}
			fmt.Fprintf(out, "  %-18s timeout=%-6s%s  %s\n", c.Type, c.Timeout, flags, c.Raw)
		}
	}
	return nil
}
