package app

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(),
				"metasync %s\n  commit:   %s\n  built:    %s\n  built by: %s\n  go:       %s\n",
				a.version, a.commit, a.date, a.builtBy, runtime.Version())
			return err
		},
	}
}
