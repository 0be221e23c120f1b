package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"job-sync/internal/syncer"
)

func newSyncCmd(rt *runtime) *cobra.Command {
	var req syncer.Request
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one provider sync and print the report",
		Long: `Run the orchestrator once.

Without flags only providers scheduled for the current UTC hour run.
--api runs a single provider (add --force to ignore its schedule) and
--all runs every enabled provider.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt.ensureSchema(ctx)

			report, err := rt.container.Syncer.SyncJobs(ctx, req)
			if perr := printJSON(cmd.OutOrStdout(), report); perr != nil {
				return perr
			}
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.API, "api", "", "run only this provider")
	cmd.Flags().BoolVar(&req.Force, "force", false, "ignore the schedule for --api")
	cmd.Flags().BoolVar(&req.All, "all", false, "run every enabled provider")
	return cmd
}
