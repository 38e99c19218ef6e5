// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # Account Data Access

// AccountRepository defines the credential store used by the auth flows.
// Lookups that match nothing return dberr.ErrNotFound; inserts that collide
// on the email index return an error wrapping dberr.ErrUniqueViolation.
type AccountRepository interface {

	/*
		Create persists a brand-new account.

		Parameters:
		  - context: context.Context
		  - account: *Account

		Returns:
		  - error: dberr.ErrUniqueViolation on email collision, or persistence failures
	*/
	Create(context context.Context, account *Account) error

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Account: Hydrated entity
		  - error: dberr.ErrNotFound or retrieval failures
	*/
	FindByID(context context.Context, id string) (*Account, error)

	/*
		FindByEmail returns the account with the given (case-folded) email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *Account: Hydrated entity
		  - error: dberr.ErrNotFound or retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*Account, error)

	/*
		SetResetToken stores a pending reset, replacing any earlier one.

		Parameters:
		  - context: context.Context
		  - accountID: string
		  - tokenHash: string
		  - expiresAt: time.Time

		Returns:
		  - error: dberr.ErrNotFound or persistence failures
	*/
	SetResetToken(context context.Context, accountID, tokenHash string, expiresAt time.Time) error

	/*
		ConsumeResetToken sets a new password hash and clears the reset pair in
		one conditional statement, only if the digest matches and has not expired.

		Parameters:
		  - context: context.Context
		  - tokenHash: string
		  - passwordHash: string
		  - now: time.Time

		Returns:
		  - string: ID of the account that was updated
		  - error: dberr.ErrNotFound when nothing matched
	*/
	ConsumeResetToken(context context.Context, tokenHash, passwordHash string, now time.Time) (string, error)

	/*
		ConsumeVerificationToken marks the email verified and clears the digest
		in one conditional statement.

		Parameters:
		  - context: context.Context
		  - tokenHash: string
		  - now: time.Time

		Returns:
		  - string: ID of the account that was verified
		  - error: dberr.ErrNotFound when nothing matched
	*/
	ConsumeVerificationToken(context context.Context, tokenHash string, now time.Time) (string, error)
}

// # Session Data Access

// SessionRepository defines the refresh-token session store.
type SessionRepository interface {

	/*
		Create persists a new session for an authenticated login.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, session *Session) error

	/*
		FindByTokenHash returns the session holding the digest, with
		AccountActive populated from the owning account. Expired rows are
		returned too; callers decide validity.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *Session: Hydrated entity
		  - error: dberr.ErrNotFound or retrieval failures
	*/
	FindByTokenHash(context context.Context, tokenHash string) (*Session, error)

	/*
		Rotate replaces the token digest and expiry of a session, only if the
		row still holds oldHash.

		Parameters:
		  - context: context.Context
		  - sessionID: string
		  - oldHash: string
		  - newHash: string
		  - expiresAt: time.Time

		Returns:
		  - error: dberr.ErrNotFound when a concurrent rotation won
	*/
	Rotate(context context.Context, sessionID, oldHash, newHash string, expiresAt time.Time) error

	/*
		DeleteByTokenHash removes the session holding the digest. Zero rows is not an error.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - int64: Rows removed
		  - error: Persistence failures
	*/
	DeleteByTokenHash(context context.Context, tokenHash string) (int64, error)

	/*
		DeleteByUserID removes every session of an account.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - int64: Rows removed
		  - error: Persistence failures
	*/
	DeleteByUserID(context context.Context, userID string) (int64, error)

	/*
		DeleteExpired physically removes sessions whose ExpiresAt is not after now.

		Parameters:
		  - context: context.Context
		  - now: time.Time

		Returns:
		  - int64: Rows removed
		  - error: Persistence failures
	*/
	DeleteExpired(context context.Context, now time.Time) (int64, error)
}
