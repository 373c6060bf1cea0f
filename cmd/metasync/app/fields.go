package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/metasync/internal/cmd/output"
	"github.com/agentstation/metasync/pkg/sync"
)

// NewFieldsCommand creates the fields command.
func (a *App) NewFieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "Preview the canonical field schema",
		Long: `Fetch both field schemas and print the canonical schema a sync would
push, with sanitized Keyfactor names. Banned characters without a
replacement are flagged as blocked. Nothing is written to either system or
to the banned character table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := a.context(cmd.Context())

			orch, err := a.orchestrator(ctx, sync.SourceToTarget)
			if err != nil {
				return err
			}
			plan, err := orch.Prepare(ctx)
			if err != nil {
				return err
			}
			if err := output.WriteFields(cmd.OutOrStdout(), a.format(), plan); err != nil {
				return err
			}
			if plan.Blocked() {
				for _, e := range plan.Report.Unresolved {
					a.logger.Warn().
						Str("character", e.Describe()).
						Msg("Banned character has no replacement; sync will abort until one is configured")
				}
			}
			return nil
		},
	}
}
