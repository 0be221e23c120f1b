package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSeedCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the curated scholarship and internship datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt.ensureSchema(ctx)

			stats, err := rt.container.Scraper.SeedFallback(ctx)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}
