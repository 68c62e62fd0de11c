package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	coredatabase "github.com/m3rciful/shopbot/core/database"
	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/internal/app"
	"github.com/m3rciful/shopbot/internal/shop/storage/postgres"
)

// NewMigrateCommand manages the postgres schema.
func NewMigrateCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(root.ConfigPath, func(db coredatabase.Config) error {
				return coredatabase.RunMigrations(db, postgres.Migrations())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations, one step by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := parseSteps(args)
			if err != nil {
				return err
			}
			return withDatabase(root.ConfigPath, func(db coredatabase.Config) error {
				return coredatabase.RollbackMigrations(db, postgres.Migrations(), steps)
			})
		},
	})

	return cmd
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	steps, err := strconv.Atoi(args[0])
	if err != nil || steps < 1 {
		return 0, fmt.Errorf("steps must be a positive integer, got %q", args[0])
	}
	return steps, nil
}

// withDatabase only needs the database section, so the bot token may be absent.
func withDatabase(path string, fn func(coredatabase.Config) error) error {
	var cfg app.Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return err
	}
	if err := cfg.Database.Normalize(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := logger.InitLogger(&cfg.Config); err != nil {
		return err
	}
	defer func() { _ = logger.Shutdown() }()
	return fn(cfg.Database)
}
