package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func renderCmd() *cobra.Command {
	var (
		params  string
		pretty  bool
		frames  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "render <domain> <kind>",
		Short: "Render a frame sequence in process",
		Long: "Render runs a generator without a server and prints the result as JSON.\n" +
			"Without --params the catalog example for the kind is used.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, kind := args[0], args[1]
			reg := registry()

			raw := json.RawMessage(params)
			if params == "" {
				if e, ok := reg.Catalog().Lookup(domain, kind); ok {
					raw = e.Example
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			res, err := reg.Render(ctx, domain, kind, raw)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !frames {
				return writeJSON(out, res, pretty)
			}
			for i := 0; i < res.Sequence.Len(); i++ {
				if err := writeJSON(out, res.Sequence.FrameAt(i), pretty); err != nil {
					return fmt.Errorf("write frame %d: %w", i, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&params, "params", "", "generator params as a JSON object")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	cmd.Flags().BoolVar(&frames, "frames", false, "print one JSON frame per line instead of the whole result")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "render deadline")
	return cmd
}
