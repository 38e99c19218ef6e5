// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ctxutil_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/saas-starter/internal/platform/ctxutil"
	"github.com/taibuivan/saas-starter/internal/platform/sec"
)

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "test-request-id"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithRequestID(ctx, requestID)
	assert.Equal(t, requestID, ctxutil.GetRequestID(ctx))
}

/*
TestContext_Logger verifies that a custom logger can be stored in context.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}

/*
TestContext_Identity verifies that the resolved caller round-trips through the context.
*/
func TestContext_Identity(t *testing.T) {
	ctx := context.Background()

	// 1. Anonymous by default
	assert.Nil(t, ctxutil.GetIdentity(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithIdentity(ctx, &sec.Identity{UserID: "user-123", Role: sec.RoleAdmin})
	identity := ctxutil.GetIdentity(ctx)

	if assert.NotNil(t, identity) {
		assert.Equal(t, "user-123", identity.UserID)
		assert.Equal(t, sec.RoleAdmin, identity.Role)
	}
}
