package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|up-one|down|status|version|reset]",
		Short:     "Apply or inspect store migrations",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "up-one", "down", "status", "version", "reset"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}
			if err := rt.container.MigrateCommand(cmd.Context(), command); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: ok (%s)\n", command, rt.cfg.Database.Driver)
			return nil
		},
	}
}
