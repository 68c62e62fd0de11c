package cli

import (
	"context"

	"github.com/spf13/cobra"

	corecmd "github.com/m3rciful/shopbot/core/cmd"
	"github.com/m3rciful/shopbot/internal/app"
)

// NewRunCommand starts the bot and its health endpoint.
func NewRunCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return corecmd.Run(cmd.Context(), runOptions(root.ConfigPath))
		},
	}
}

func runOptions(path string) corecmd.Options {
	return corecmd.Options{
		ConfigPath: path,
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.Load(path)
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return app.Bootstrap(ctx, cfg.(*app.Config))
		},
	}
}
