// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/taibuivan/saas-starter/internal/platform/migration"
)

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigration(cmd, "up", migration.RunUp)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rollback",
		Short: "Revert the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigration(cmd, "rollback", migration.RollbackOne)
		},
	})

	return cmd
}

func runMigration(cmd *cobra.Command, direction string, apply func(dsn, path string, logger *slog.Logger) error) error {
	cfg, logger, err := environment()
	if err != nil {
		return err
	}

	cmd.Printf("Running migrations (%s) from %s...\n", direction, cfg.MigrationPath)
	if err := apply(cfg.DatabaseURL, cfg.MigrationPath, logger); err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}
