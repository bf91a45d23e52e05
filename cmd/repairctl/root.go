package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/config"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/database"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/logging"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:          "repairctl",
	Short:        "Operational commands for the repairscan backend",
	Long:         "Schema migration, demo data seeding and admin role management for repairscan.",
	SilenceUsage: true,
}

func Execute(ctx context.Context) error {
	logging.Setup()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.AddCommand(migrateCmd, seedCmd, grantAdminCmd, revokeAdminCmd)
}

// withDB opens the configured database for the duration of run.
func withDB(run func(cmd *cobra.Command, args []string, db *gorm.DB) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		db, err := database.Connect(cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer func() {
			if err := database.Close(db); err != nil {
				slog.Error("database close failed", "error", err)
			}
		}()
		return run(cmd, args, db)
	}
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: withDB(func(cmd *cobra.Command, _ []string, db *gorm.DB) error {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return err
	}),
}
