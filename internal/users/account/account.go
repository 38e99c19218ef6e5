// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account implements role-gated administration of user accounts.

Members may read and edit their own record; ADMIN and SUPER_ADMIN may list,
read, edit and delete any record except that nobody deletes themselves.

# Architecture

  - Entities: reuses [auth.AccountView]; this package never touches credentials.
  - Domain: depends on the auth package for the account shape and email folding.
  - Security: ownership is decided by [sec.Identity.CanAccess]; the list and
    delete routes are additionally wrapped in a role guard.
*/
package account

import (
	"context"
	"time"

	"github.com/taibuivan/saas-starter/internal/platform/sec"
	"github.com/taibuivan/saas-starter/internal/users/auth"
	"github.com/taibuivan/saas-starter/pkg/pagination"
)

// # Inputs

// ListFilter narrows an account listing.
type ListFilter struct {
	pagination.Params

	// Roles keeps only accounts holding one of these roles. Empty means all.
	Roles []sec.UserRole
}

// UpdateInput carries the mutable profile fields. Nil means unchanged.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	Email     *string
}

// Changes is the resolved update handed to the repository.
type Changes struct {
	FirstName string
	LastName  string
	Email     string
	UpdatedAt time.Time
}

// # Repository Contracts

// Repository defines the persistence contract for account administration.
type Repository interface {
	/*
		List returns one page of accounts, newest first, and the total number
		of accounts matching the filter.

		Parameters:
		  - context: context.Context
		  - filter: ListFilter

		Returns:
		  - []*auth.AccountView: The requested page
		  - int: Total matches across all pages
		  - error: Storage failures
	*/
	List(context context.Context, filter ListFilter) ([]*auth.AccountView, int, error)

	// FindByID returns dberr.ErrNotFound when the account does not exist.
	FindByID(context context.Context, id string) (*auth.AccountView, error)

	/*
		Update writes the profile fields and returns the stored record.

		Returns:
		  - *auth.AccountView: The updated account
		  - error: dberr.ErrNotFound, dberr.ErrUniqueViolation (email taken) or storage failures
	*/
	Update(context context.Context, id string, changes Changes) (*auth.AccountView, error)

	// Delete removes the account; its sessions go with it. Returns
	// dberr.ErrNotFound when nothing was deleted.
	Delete(context context.Context, id string) error
}
