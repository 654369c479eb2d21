// Package cmd wires the docproof CLI together.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags.
var Version = "dev"

// ExitCodeError carries a specific process exit status up to main. The
// executor and scanner commands use documented exit conventions beyond the
// usual 0/1.
type ExitCodeError struct {
	Code    int
	Message string
}

func (e *ExitCodeError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docproof",
		Short: "Documentation-driven test and validation engine",
		Long: `Docproof validates prose installation and configuration guides by
parsing them into an executable step/command model, replaying the suite
inside isolated sandboxes across a scenario/platform/runtime matrix,
cross-referencing the resulting run artifacts, and reporting prioritized
findings about documentation accuracy.`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewParseCommand())
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewMatrixCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewScanCommand())

	return cmd
}
