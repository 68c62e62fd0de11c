// Package cli defines the shopbot command line.
package cli

import (
	"github.com/spf13/cobra"

	coreconfig "github.com/m3rciful/shopbot/core/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	EnvFile    string
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "shopbot",
		Short:         "Telegram shop bot",
		Long:          "A Telegram bot that walks customers from a catalog to a placed order.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return coreconfig.LoadDotEnv(opts.EnvFile)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "config.yaml", "path to the YAML config file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before the config")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}
