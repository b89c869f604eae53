// Package commands implements the vvctl command tree.
package commands

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/visualverse/internal/domain/render"
	"github.com/okian/visualverse/pkg/logger"
)

var (
	logLevel     string
	maxInputSize int
	maxFrames    int
)

// Execute runs the root command.
func Execute() error {
	return newRoot().Execute()
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "vvctl",
		Short:         "Render VisualVerse sequences offline and smoke-test a server",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.WithOutput(os.Stderr), logger.WithLevel(logLevel))
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().IntVar(&maxInputSize, "max-input", 0, "cap on array lengths and sample counts (0 keeps the default)")
	root.PersistentFlags().IntVar(&maxFrames, "max-frames", 0, "cap on frames per sequence (0 keeps the default)")

	root.AddCommand(renderCmd(), catalogCmd(), smokeCmd())
	return root
}

func registry() *render.Registry {
	var opts []render.Option
	if maxInputSize > 0 {
		opts = append(opts, render.WithMaxInputSize(maxInputSize))
	}
	if maxFrames > 0 {
		opts = append(opts, render.WithMaxFrames(maxFrames))
	}
	return render.NewRegistry(opts...)
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
