package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScrapeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Scrape scholarship and internship sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt.ensureSchema(ctx)

			stats, err := rt.container.Scraper.Run(ctx)
			if err != nil {
				return fmt.Errorf("scrape: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}
