package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newProvidersCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Print the provider schedule and quota table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			now := time.Now().UTC()
			policy := rt.container.Policy

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tENABLED\tTIMES (UTC)\tLIMIT H/D/M\tUSED H/D/M\tNEXT RUN")
			for _, name := range policy.Names() {
				pc, err := policy.GetAPIConfig(name)
				if err != nil {
					return err
				}
				next := "-"
				if t, err := policy.NextRun(name, now); err == nil && !t.IsZero() {
					next = t.Format(time.RFC3339)
				}
				used := "-"
				if rt.container.Cache.Available() {
					if u, err := rt.container.Cache.Usage(ctx, name, now); err == nil {
						used = fmt.Sprintf("%d/%d/%d", u.Hour, u.Day, u.Month)
					}
				}
				fmt.Fprintf(w, "%s\t%t\t%s\t%d/%d/%d\t%s\t%s\n",
					name,
					pc.Enabled,
					strings.Join(pc.Schedule.Times, ","),
					pc.Limits.PerHour, pc.Limits.PerDay, pc.Limits.PerMonth,
					used,
					next,
				)
			}
			return w.Flush()
		},
	}
}
