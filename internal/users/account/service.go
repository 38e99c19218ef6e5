// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/saas-starter/internal/platform/apperr"
	"github.com/taibuivan/saas-starter/internal/platform/dberr"
	"github.com/taibuivan/saas-starter/internal/platform/sec"
	"github.com/taibuivan/saas-starter/internal/users/auth"
)

// AccessDeniedMessage is returned for every ownership or role failure.
const AccessDeniedMessage = "Access denied"

// # Service Layer

// Service orchestrates account administration.
//
// Every operation receives the calling [sec.Identity] and checks it before
// touching storage, so the rules hold for callers other than the HTTP layer.
type Service struct {
	repository Repository
	logger     *slog.Logger
	now        func() time.Time
}

// Option customises a [Service].
type Option func(*Service)

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(service *Service) { service.now = now }
}

// NewService constructs a new [Service] with its repository dependency.
func NewService(repository Repository, logger *slog.Logger, opts ...Option) *Service {
	service := &Service{
		repository: repository,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

/*
List returns a page of accounts for an administrator.

Parameters:
  - context: context.Context
  - actor: *sec.Identity (The caller)
  - filter: ListFilter

Returns:
  - []*auth.AccountView: The requested page
  - int: Total matches
  - error: apperr.Forbidden for non-admins, or storage failures
*/
func (service *Service) List(context context.Context, actor *sec.Identity, filter ListFilter) ([]*auth.AccountView, int, error) {
	if !actor.Role.IsAdmin() {
		return nil, 0, apperr.Forbidden(AccessDeniedMessage)
	}

	accounts, total, err := service.repository.List(context, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("account_service_list_failed: %w", err)
	}
	return accounts, total, nil
}

/*
Get returns one account. Members may only read their own.

Returns:
  - *auth.AccountView: The account
  - error: apperr.Forbidden, apperr.NotFound or storage failures
*/
func (service *Service) Get(context context.Context, actor *sec.Identity, id string) (*auth.AccountView, error) {
	if !actor.CanAccess(id) {
		return nil, apperr.Forbidden(AccessDeniedMessage)
	}

	account, err := service.repository.FindByID(context, id)
	if err != nil {
		return nil, service.translate("account_service_get_failed", err)
	}
	return account, nil
}

/*
Update applies a partial profile change.

Description: Loads the current record, overrides the provided fields and
writes the result back. The email is case-folded the same way registration
stores it; a collision with another account is reported as DUPLICATE_ACCOUNT.

Parameters:
  - context: context.Context
  - actor: *sec.Identity
  - id: string (Target account)
  - input: UpdateInput

Returns:
  - *auth.AccountView: The updated account
  - error: apperr.Forbidden, apperr.NotFound, apperr.DuplicateAccount or storage failures
*/
func (service *Service) Update(context context.Context, actor *sec.Identity, id string, input UpdateInput) (*auth.AccountView, error) {
	if !actor.CanAccess(id) {
		return nil, apperr.Forbidden(AccessDeniedMessage)
	}

	current, err := service.repository.FindByID(context, id)
	if err != nil {
		return nil, service.translate("account_service_update_lookup_failed", err)
	}

	changes := Changes{
		FirstName: current.FirstName,
		LastName:  current.LastName,
		Email:     current.Email,
		UpdatedAt: service.now().UTC(),
	}

	// Apply delta updates
	if input.FirstName != nil {
		changes.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		changes.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Email != nil {
		changes.Email = auth.NormalizeEmail(*input.Email)
	}

	updated, err := service.repository.Update(context, id, changes)
	if err != nil {
		return nil, service.translate("account_service_update_failed", err)
	}

	service.logger.InfoContext(context, "user_account_updated",
		slog.String("account_id", id),
		slog.String("actor_id", actor.UserID),
	)

	return updated, nil
}

/*
Delete removes an account. Only administrators may delete, and never themselves.

Returns:
  - error: apperr.Forbidden, a validation error on self-deletion, apperr.NotFound
*/
func (service *Service) Delete(context context.Context, actor *sec.Identity, id string) error {
	if actor.UserID == id {
		return apperr.ValidationError("Cannot delete your own account")
	}
	if !actor.Role.IsAdmin() {
		return apperr.Forbidden(AccessDeniedMessage)
	}

	if err := service.repository.Delete(context, id); err != nil {
		return service.translate("account_service_delete_failed", err)
	}

	service.logger.WarnContext(context, "user_account_deleted",
		slog.String("account_id", id),
		slog.String("actor_id", actor.UserID),
	)

	return nil
}

// translate maps storage sentinels onto API errors and wraps the rest.
func (service *Service) translate(operation string, err error) error {
	switch {
	case errors.Is(err, dberr.ErrNotFound):
		return apperr.NotFound("User")
	case errors.Is(err, dberr.ErrUniqueViolation):
		return apperr.DuplicateAccount()
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
