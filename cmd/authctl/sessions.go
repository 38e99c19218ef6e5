// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSessionsCmd creates the sessions command group.
func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Refresh-token session housekeeping",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete sessions whose refresh token has expired",
		Long: `Delete every session row past its expiry. Expired sessions are already
rejected on refresh; purging only keeps the table small. Safe to run from cron.`,
		Args: cobra.NoArgs,
		RunE: runSessionsPurge,
	})

	return cmd
}

func runSessionsPurge(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := environment()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	service, pool, err := openAuthService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	removed, err := service.PurgeExpiredSessions(ctx)
	if err != nil {
		return fmt.Errorf("purge sessions: %w", err)
	}

	cmd.Printf("Removed %d expired sessions\n", removed)
	return nil
}
