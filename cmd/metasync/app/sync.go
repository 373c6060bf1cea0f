package app

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/metasync/internal/cmd/output"
	"github.com/agentstation/metasync/pkg/errors"
	"github.com/agentstation/metasync/pkg/sync"
)

// NewSyncCommand creates the sync command.
func (a *App) NewSyncCommand() *cobra.Command {
	var report string

	cmd := &cobra.Command{
		Use:   "sync <sctokf|kftosc>",
		Short: "Run one metadata sync pass",
		Long: `Run one metadata sync pass in the given direction.

  sctokf   Sectigo to Keyfactor: pushes the canonical schema to Keyfactor and
           writes Manual and Custom field values into certificate metadata.
  kftosc   Keyfactor to Sectigo: writes Keyfactor metadata of Custom fields
           back into Sectigo custom fields.

Records that cannot be matched or only partly written are listed in the
summary; the exit status is non-zero only when the run aborts.`,
		Example: `  metasync sync sctokf
  metasync sync kftosc --output json
  metasync sync sctokf --report reports/last-run.md`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(sync.SourceToTarget), string(sync.TargetToSource)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSync(cmd.Context(), cmd.OutOrStdout(), args[0], report)
		},
	}

	cmd.Flags().StringVar(&report, "report", "", "also write a markdown report to this file")

	return cmd
}

func (a *App) runSync(ctx context.Context, w io.Writer, arg, report string) error {
	ctx = a.context(ctx)

	direction, err := sync.ParseDirection(arg)
	if err != nil {
		err = errors.NewFatalError(errors.StageInit, err)
		a.logger.Error().Err(err).Msg("Invalid sync direction")
		return err
	}

	orch, err := a.orchestrator(ctx, direction)
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to set up run")
		return err
	}

	result, runErr := orch.Run(ctx)
	if runErr != nil {
		a.logger.Error().
			Err(runErr).
			Str("stage", string(errors.FatalStage(runErr))).
			Msg("Run aborted")
	}
	if result == nil {
		return runErr
	}

	if err := output.WriteSummary(w, a.format(), result); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	if report != "" {
		if err := output.WriteReportFile(report, result); err != nil {
			return errors.WrapIO("write", report, err)
		}
		a.logger.Info().Str("path", report).Msg("Report written")
	}
	return runErr
}
