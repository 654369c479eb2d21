package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/docproof/internal/models"
)

// RenderJSON writes the machine-readable form.
func (r *Report) RenderJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// RenderText writes the human-readable form. Color is used only when the
// writer is a TTY and NO_COLOR is unset.
func (r *Report) RenderText(w io.Writer) {
	useColor := writerIsTerminal(w) && !color.NoColor

	paint := func(c *color.Color, s string) string {
		if useColor {
			return c.Sprint(s)
		}
		return s
	}
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)
	bold := color.New(color.Bold)

	fmt.Fprintln(w, paint(bold, "Documentation Validation Report"))
	fmt.Fprintln(w, strings.Repeat("=", 40))

	headline := r.headline()
	if r.HasDefects() {
		fmt.Fprintln(w, paint(red, headline))
	} else {
		fmt.Fprintln(w, paint(green, headline))
	}
	fmt.Fprintf(w, "Steps documented: %d\n\n", r.TotalSteps)

	fmt.Fprintln(w, paint(bold, "Breakdown"))
	currentDim := ""
	for _, b := range r.Breakdowns {
		if b.Dimension != currentDim {
			currentDim = b.Dimension
			fmt.Fprintf(w, "  by %s:\n", b.Dimension)
		}
		fmt.Fprintf(w, "    %-24s runs=%-3d passed=%-4d failed=%-4d skipped=%d\n",
			b.Key, b.Runs, b.Passed, b.Failed, b.Skipped)
	}
	fmt.Fprintln(w)

	if len(r.TopFailures) > 0 {
		fmt.Fprintln(w, paint(bold, "Top recurring failures"))
		for i, f := range r.TopFailures {
			fmt.Fprintf(w, "  %d. (%dx) %s\n", i+1, f.Count, f.Detail)
			if len(f.Steps) > 0 {
				fmt.Fprintf(w, "     steps: %s\n", strings.Join(f.Steps, "; "))
			}
			if len(f.Scenarios) > 0 {
				fmt.Fprintf(w, "     scenarios: %s\n", strings.Join(f.Scenarios, ", "))
			}
		}
		fmt.Fprintln(w)
	}

	if len(r.Anomalies) > 0 {
		fmt.Fprintln(w, paint(bold, "Platform-specific anomalies"))
		for _, a := range r.Anomalies {
			fmt.Fprintf(w, "  %s / %s: fails on %s, passes on %s\n",
				a.Section, a.Step, strings.Join(a.Affected, ","), strings.Join(a.Unaffected, ","))
		}
		fmt.Fprintln(w)
	}

	if r.History != nil && len(r.History.Trends) > 0 {
		fmt.Fprintln(w, paint(bold, fmt.Sprintf("History (%d recorded run(s))", r.History.Runs)))
		for _, t := range r.History.Trends {
			target := t.Step
			if t.Section != "" {
				target = t.Section + " / " + t.Step
			}
			fmt.Fprintf(w, "  %-48s passed=%-4d failed=%-4d last=%s (%s)\n",
				target, t.Passed, t.Failed, t.LastStatus, t.LastSeen.Format("2006-01-02"))
		}
		fmt.Fprintln(w)
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintln(w, paint(bold, "Recommendations"))
		for _, rec := range r.Recommendations {
			line := fmt.Sprintf("  %d. [%s] %s (%dx)", rec.Priority, strings.TrimSpace(shortSeverity(rec.Severity)), rec.Action, rec.Count)
			switch rec.Severity {
			case models.SeverityCritical, models.SeverityHigh:
				fmt.Fprintln(w, paint(red, line))
			case models.SeverityMedium:
				fmt.Fprintln(w, paint(yellow, line))
			default:
				fmt.Fprintln(w, line)
			}
		}
	}
}

func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
