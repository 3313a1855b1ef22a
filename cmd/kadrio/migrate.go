package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wpietrzak/kadrio/internal/config"
	"github.com/wpietrzak/kadrio/internal/db"
)

func newMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long:  "Runs the schema migration for the configured database. Safe to run multiple times (idempotent).",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.OutOrStdout(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "kadrio.yaml", "path to Kadrio config file")
	return cmd
}

func runMigrate(out io.Writer, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	fmt.Fprintf(out, "Migrating %s database (%s)...\n", cfg.Database.Driver, cfg.Database.DSN)
	if err := db.AutoMigrate(gormDB); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	for _, model := range db.AllModels() {
		fmt.Fprintf(out, "  ok %T\n", model)
	}
	fmt.Fprintln(out, "Migration complete.")
	return nil
}
