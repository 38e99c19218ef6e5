// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/saas-starter/internal/platform/apperr"
	"github.com/taibuivan/saas-starter/internal/platform/sec"
	"github.com/taibuivan/saas-starter/internal/users/auth"
	"github.com/taibuivan/saas-starter/pkg/pagination"
)

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, code), "want %s, got %v", code, err)
}

func ptr(value string) *string { return &value }

func TestService_List(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	t.Run("admins see every account newest first", func(t *testing.T) {
		accounts, total, err := service.List(ctx, admin, ListFilter{Params: pagination.New(1, 10)})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, accounts, 3)
		assert.Equal(t, []string{otherID, memberID, adminID},
			[]string{accounts[0].ID, accounts[1].ID, accounts[2].ID})
	})

	t.Run("pagination keeps the full total", func(t *testing.T) {
		accounts, total, err := service.List(ctx, admin, ListFilter{Params: pagination.New(2, 2)})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, accounts, 1)
		assert.Equal(t, adminID, accounts[0].ID)
	})

	t.Run("role filter", func(t *testing.T) {
		accounts, total, err := service.List(ctx, admin, ListFilter{
			Params: pagination.New(1, 10),
			Roles:  []sec.UserRole{sec.RoleUser},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Equal(t, []string{otherID, memberID}, []string{accounts[0].ID, accounts[1].ID})
	})

	t.Run("members are denied", func(t *testing.T) {
		_, _, err := service.List(ctx, member, ListFilter{Params: pagination.New(1, 10)})
		assertAppError(t, err, apperr.CodeForbidden)
	})
}

func TestService_Get(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		actor    *sec.Identity
		id       string
		wantCode string
	}{
		{name: "member reads self", actor: member, id: memberID},
		{name: "admin reads anyone", actor: admin, id: otherID},
		{name: "member reads another", actor: member, id: otherID, wantCode: apperr.CodeForbidden},
		{name: "unknown account", actor: admin, id: absentID, wantCode: apperr.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := service.Get(ctx, tt.actor, tt.id)
			if tt.wantCode != "" {
				assertAppError(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, account.ID)
		})
	}
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("applies only the provided fields", func(t *testing.T) {
		service, _ := newTestService(t)

		updated, err := service.Update(ctx, member, memberID, UpdateInput{FirstName: ptr(" Maya ")})
		require.NoError(t, err)

		assert.Equal(t, "Maya", updated.FirstName)
		assert.Equal(t, "Member", updated.LastName)
		assert.Equal(t, "member@example.com", updated.Email)
		assert.Equal(t, updateTime, updated.UpdatedAt)
	})

	t.Run("email is folded like registration", func(t *testing.T) {
		service, _ := newTestService(t)

		updated, err := service.Update(ctx, admin, otherID, UpdateInput{Email: ptr(" Otto@Example.COM ")})
		require.NoError(t, err)
		assert.Equal(t, auth.NormalizeEmail("Otto@Example.COM"), updated.Email)
	})

	t.Run("email collision is a duplicate account", func(t *testing.T) {
		service, repository := newTestService(t)

		_, err := service.Update(ctx, member, memberID, UpdateInput{Email: ptr("ADMIN@example.com")})
		assertAppError(t, err, apperr.CodeDuplicateAccount)

		current, _ := repository.FindByID(ctx, memberID)
		assert.Equal(t, "member@example.com", current.Email)
	})

	t.Run("members cannot edit others", func(t *testing.T) {
		service, _ := newTestService(t)

		_, err := service.Update(ctx, member, otherID, UpdateInput{FirstName: ptr("X")})
		assertAppError(t, err, apperr.CodeForbidden)
	})

	t.Run("unknown account", func(t *testing.T) {
		service, _ := newTestService(t)

		_, err := service.Update(ctx, admin, absentID, UpdateInput{FirstName: ptr("X")})
		assertAppError(t, err, apperr.CodeNotFound)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("admin deletes another account", func(t *testing.T) {
		service, repository := newTestService(t)

		require.NoError(t, service.Delete(ctx, admin, otherID))
		assert.False(t, repository.exists(otherID))
	})

	t.Run("self deletion is rejected", func(t *testing.T) {
		service, repository := newTestService(t)

		err := service.Delete(ctx, admin, adminID)
		assertAppError(t, err, apperr.CodeValidation)
		assert.True(t, repository.exists(adminID))
	})

	t.Run("members are denied", func(t *testing.T) {
		service, repository := newTestService(t)

		err := service.Delete(ctx, member, otherID)
		assertAppError(t, err, apperr.CodeForbidden)
		assert.True(t, repository.exists(otherID))
	})

	t.Run("unknown account", func(t *testing.T) {
		service, _ := newTestService(t)

		err := service.Delete(ctx, admin, absentID)
		assertAppError(t, err, apperr.CodeNotFound)
	})
}
