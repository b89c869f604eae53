package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func catalogCmd() *cobra.Command {
	var (
		domain string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List renderable kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := registry().Catalog().List(domain)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), entries, true)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DOMAIN\tKIND\tLEVEL\tTITLE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Domain, e.Kind, e.Level, e.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "only list one domain")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
