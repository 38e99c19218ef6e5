// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"bytes"
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/taibuivan/saas-starter/internal/platform/dberr"
	"github.com/taibuivan/saas-starter/internal/platform/sec"
	"github.com/taibuivan/saas-starter/internal/users/auth"
)

const (
	adminID  = "018f0000-0000-7000-8000-000000000001"
	memberID = "018f0000-0000-7000-8000-000000000002"
	otherID  = "018f0000-0000-7000-8000-000000000003"
	absentID = "018f0000-0000-7000-8000-0000000000ff"
)

var (
	baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	admin  = &sec.Identity{UserID: adminID, Email: "admin@example.com", Role: sec.RoleAdmin}
	member = &sec.Identity{UserID: memberID, Email: "member@example.com", Role: sec.RoleUser}
)

// memoryRepository mirrors the Postgres statements over a map.
type memoryRepository struct {
	mu       sync.Mutex
	accounts map[string]*auth.AccountView
}

func newMemoryRepository() *memoryRepository {
	repository := &memoryRepository{accounts: map[string]*auth.AccountView{}}

	repository.put(adminID, "admin@example.com", "Ada", "Admin", sec.RoleAdmin, 0)
	repository.put(memberID, "member@example.com", "Mia", "Member", sec.RoleUser, 1)
	repository.put(otherID, "other@example.com", "Otto", "Other", sec.RoleUser, 2)

	return repository
}

func (repository *memoryRepository) put(id, email, first, last string, role sec.UserRole, age int) {
	created := baseTime.Add(time.Duration(age) * time.Hour)
	repository.accounts[id] = &auth.AccountView{
		ID: id, Email: email, FirstName: first, LastName: last, Role: role,
		IsActive: true, EmailVerified: true, CreatedAt: created, UpdatedAt: created,
	}
}

func (repository *memoryRepository) List(_ context.Context, filter ListFilter) ([]*auth.AccountView, int, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	var matched []*auth.AccountView
	for _, account := range repository.accounts {
		if len(filter.Roles) > 0 && !slices.Contains(filter.Roles, account.Role) {
			continue
		}
		copied := *account
		matched = append(matched, &copied)
	}

	slices.SortFunc(matched, func(a, b *auth.AccountView) int { return b.CreatedAt.Compare(a.CreatedAt) })

	total := len(matched)
	start := min(filter.Offset(), total)
	end := min(start+filter.Limit, total)

	return append([]*auth.AccountView{}, matched[start:end]...), total, nil
}

func (repository *memoryRepository) FindByID(_ context.Context, id string) (*auth.AccountView, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	account, ok := repository.accounts[id]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (repository *memoryRepository) Update(_ context.Context, id string, changes Changes) (*auth.AccountView, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	account, ok := repository.accounts[id]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	for key, other := range repository.accounts {
		if key != id && strings.EqualFold(other.Email, changes.Email) {
			return nil, dberr.ErrUniqueViolation
		}
	}

	account.FirstName = changes.FirstName
	account.LastName = changes.LastName
	account.Email = changes.Email
	account.UpdatedAt = changes.UpdatedAt

	copied := *account
	return &copied, nil
}

func (repository *memoryRepository) Delete(_ context.Context, id string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, ok := repository.accounts[id]; !ok {
		return dberr.ErrNotFound
	}
	delete(repository.accounts, id)
	return nil
}

func (repository *memoryRepository) exists(id string) bool {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	_, ok := repository.accounts[id]
	return ok
}

var updateTime = baseTime.Add(24 * time.Hour)

func newTestService(t *testing.T) (*Service, *memoryRepository) {
	t.Helper()

	repository := newMemoryRepository()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	service := NewService(repository, logger, WithClock(func() time.Time { return updateTime }))

	return service, repository
}
