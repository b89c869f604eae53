package commands

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/visualverse/internal/smoke"
)

func smokeCmd() *cobra.Command {
	var (
		cfg     smoke.Config
		overall time.Duration
	)
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Verify a running server end to end",
		Long: "Smoke checks health, the catalog, a synchronous render, concurrent jobs\n" +
			"and, with --email/--password, a content round-trip and the dashboard.\n" +
			"The password may also come from VV_SMOKE_PASSWORD.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Password == "" {
				cfg.Password = os.Getenv("VV_SMOKE_PASSWORD")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), overall)
			defer cancel()
			rep, err := smoke.Run(ctx, cfg)
			if werr := writeJSON(cmd.OutOrStdout(), rep, true); werr != nil {
				return werr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "per-request timeout")
	cmd.Flags().IntVar(&cfg.Jobs, "jobs", 8, "render jobs submitted concurrently")
	cmd.Flags().StringVar(&cfg.Email, "email", "", "admin or editor email for authenticated checks")
	cmd.Flags().StringVar(&cfg.Password, "password", "", "password for --email")
	cmd.Flags().DurationVar(&overall, "deadline", 2*time.Minute, "deadline for the whole run")
	return cmd
}
