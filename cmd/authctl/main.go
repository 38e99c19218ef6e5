// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command authctl is the operator CLI for the SaaS Starter API: schema
// migrations, session housekeeping and administrator seeding.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/taibuivan/saas-starter/internal/platform/constants"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = constants.AppVersion

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		os.Exit(1)
	}
}
