// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/saas-starter/internal/platform/database/schema"
	"github.com/taibuivan/saas-starter/internal/platform/dberr"
	"github.com/taibuivan/saas-starter/internal/platform/postgres"
)

var (
	accountTable = schema.UserAccount
	sessionTable = schema.UserSession
)

// accountColumns lists every column in the order [scanAccount] expects.
var accountColumns = strings.Join([]string{
	accountTable.ID, accountTable.Email, accountTable.Password, accountTable.FirstName,
	accountTable.LastName, accountTable.Role, accountTable.IsActive, accountTable.EmailVerified,
	accountTable.VerificationTokenHash, accountTable.ResetTokenHash, accountTable.ResetTokenExpiresAt,
	accountTable.CreatedAt, accountTable.UpdatedAt,
}, ", ")

func scanAccount(row pgx.Row) (*Account, error) {
	account := &Account{}
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.FirstName,
		&account.LastName,
		&account.Role,
		&account.IsActive,
		&account.EmailVerified,
		&account.VerificationTokenHash,
		&account.ResetTokenHash,
		&account.ResetTokenExpiresAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// # Account Repository

// PostgresAccountRepository implements [AccountRepository] using pgx.
type PostgresAccountRepository struct {
	db postgres.DBTX
}

// NewAccountRepository creates a new PostgreSQL implementation of the AccountRepository.
func NewAccountRepository(db postgres.DBTX) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

/*
Create persists a new account record into the users.account table.

Parameters:
  - context: context.Context
  - account: *Account (Entity to persist)

Returns:
  - error: dberr.ErrUniqueViolation or connectivity errors
*/
func (repository *PostgresAccountRepository) Create(context context.Context, account *Account) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		accountTable.Table, accountColumns,
	)

	_, err := repository.db.Exec(context, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.Role,
		account.IsActive,
		account.EmailVerified,
		account.VerificationTokenHash,
		account.ResetTokenHash,
		account.ResetTokenExpiresAt,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_create_failed: %w", dberr.Classify(err))
	}

	return nil
}

// FindByID resolves an account by primary key.
func (repository *PostgresAccountRepository) FindByID(context context.Context, id string) (*Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		accountColumns, accountTable.Table, accountTable.ID,
	)

	account, err := scanAccount(repository.db.QueryRow(context, query, id))
	if err != nil {
		return nil, fmt.Errorf("postgres_account_repo_find_by_id_failed: %w", dberr.Classify(err))
	}
	return account, nil
}

// FindByEmail resolves an account by email, compared case-insensitively.
func (repository *PostgresAccountRepository) FindByEmail(context context.Context, email string) (*Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE lower(%s) = lower($1)`,
		accountColumns, accountTable.Table, accountTable.Email,
	)

	account, err := scanAccount(repository.db.QueryRow(context, query, email))
	if err != nil {
		return nil, fmt.Errorf("postgres_account_repo_find_by_email_failed: %w", dberr.Classify(err))
	}
	return account, nil
}

/*
SetResetToken records a pending password reset, overwriting any earlier one.

Parameters:
  - context: context.Context
  - accountID: string
  - tokenHash: string (SHA-256 of the emailed token)
  - expiresAt: time.Time

Returns:
  - error: dberr.ErrNotFound or execution errors
*/
func (repository *PostgresAccountRepository) SetResetToken(context context.Context, accountID, tokenHash string, expiresAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = NOW()
		WHERE %s = $1`,
		accountTable.Table,
		accountTable.ResetTokenHash, accountTable.ResetTokenExpiresAt, accountTable.UpdatedAt,
		accountTable.ID,
	)

	tag, err := repository.db.Exec(context, query, accountID, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_set_reset_token_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres_account_repo_set_reset_token_failed: %w", dberr.ErrNotFound)
	}

	return nil
}

/*
ConsumeResetToken redeems a reset token and stores the new password hash.

Description: The match, the expiry check and the clearing of the token pair
happen in one UPDATE, so two concurrent redemptions cannot both succeed.

Parameters:
  - context: context.Context
  - tokenHash: string
  - passwordHash: string
  - now: time.Time

Returns:
  - string: Account ID
  - error: dberr.ErrNotFound when the token is unknown, expired or already used
*/
func (repository *PostgresAccountRepository) ConsumeResetToken(context context.Context, tokenHash, passwordHash string, now time.Time) (string, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = NULL, %s = NULL, %s = $3
		WHERE %s = $1 AND %s > $3
		RETURNING %s`,
		accountTable.Table,
		accountTable.Password, accountTable.ResetTokenHash, accountTable.ResetTokenExpiresAt, accountTable.UpdatedAt,
		accountTable.ResetTokenHash, accountTable.ResetTokenExpiresAt,
		accountTable.ID,
	)

	var accountID string
	if err := repository.db.QueryRow(context, query, tokenHash, passwordHash, now).Scan(&accountID); err != nil {
		return "", fmt.Errorf("postgres_account_repo_consume_reset_token_failed: %w", dberr.Classify(err))
	}

	return accountID, nil
}

// ConsumeVerificationToken flips emailverified and clears the digest in one statement.
func (repository *PostgresAccountRepository) ConsumeVerificationToken(context context.Context, tokenHash string, now time.Time) (string, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = TRUE, %s = NULL, %s = $2
		WHERE %s = $1
		RETURNING %s`,
		accountTable.Table,
		accountTable.EmailVerified, accountTable.VerificationTokenHash, accountTable.UpdatedAt,
		accountTable.VerificationTokenHash,
		accountTable.ID,
	)

	var accountID string
	if err := repository.db.QueryRow(context, query, tokenHash, now).Scan(&accountID); err != nil {
		return "", fmt.Errorf("postgres_account_repo_consume_verification_token_failed: %w", dberr.Classify(err))
	}

	return accountID, nil
}

// # Session Repository

// PostgresSessionRepository implements the SessionRepository interface.
type PostgresSessionRepository struct {
	db postgres.DBTX
}

// NewSessionRepository creates a new PostgreSQL implementation of SessionRepository.
func NewSessionRepository(db postgres.DBTX) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

/*
Create persists a new session record into the users.session table.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Storage failures
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sessionTable.Table,
		sessionTable.ID, sessionTable.UserID, sessionTable.TokenHash, sessionTable.UserAgent,
		sessionTable.IPAddress, sessionTable.ExpiresAt, sessionTable.CreatedAt,
	)

	_, err := repository.db.Exec(context, query,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_create_failed: %w", dberr.Classify(err))
	}

	return nil
}

/*
FindByTokenHash resolves a refresh-token digest into its session.

Description: Joins the owning account so the caller can reject sessions of
deactivated accounts without a second round trip.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *Session: Hydrated session metadata
  - error: dberr.ErrNotFound or execution errors
*/
func (repository *PostgresSessionRepository) FindByTokenHash(context context.Context, tokenHash string) (*Session, error) {
	query := fmt.Sprintf(`
		SELECT s.%s, s.%s, s.%s, s.%s, s.%s, s.%s, s.%s, a.%s
		FROM %s s
		JOIN %s a ON a.%s = s.%s
		WHERE s.%s = $1`,
		sessionTable.ID, sessionTable.UserID, sessionTable.TokenHash, sessionTable.UserAgent,
		sessionTable.IPAddress, sessionTable.ExpiresAt, sessionTable.CreatedAt, accountTable.IsActive,
		sessionTable.Table,
		accountTable.Table, accountTable.ID, sessionTable.UserID,
		sessionTable.TokenHash,
	)

	session := &Session{}
	err := repository.db.QueryRow(context, query, tokenHash).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.UserAgent,
		&session.IPAddress,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.AccountActive,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres_session_repo_find_failed: %w", dberr.Classify(err))
	}

	return session, nil
}

/*
Rotate swaps the refresh-token digest of a session in place.

Description: Conditioned on the old digest still being current, so of two
concurrent refreshes with the same token exactly one wins.

Parameters:
  - context: context.Context
  - sessionID: string
  - oldHash: string
  - newHash: string
  - expiresAt: time.Time

Returns:
  - error: dberr.ErrNotFound when the row no longer holds oldHash
*/
func (repository *PostgresSessionRepository) Rotate(context context.Context, sessionID, oldHash, newHash string, expiresAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $3, %s = $4
		WHERE %s = $1 AND %s = $2`,
		sessionTable.Table,
		sessionTable.TokenHash, sessionTable.ExpiresAt,
		sessionTable.ID, sessionTable.TokenHash,
	)

	tag, err := repository.db.Exec(context, query, sessionID, oldHash, newHash, expiresAt)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_rotate_failed: %w", dberr.Classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres_session_repo_rotate_failed: %w", dberr.ErrNotFound)
	}

	return nil
}

// DeleteByTokenHash removes the session holding the digest.
func (repository *PostgresSessionRepository) DeleteByTokenHash(context context.Context, tokenHash string) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, sessionTable.Table, sessionTable.TokenHash)

	tag, err := repository.db.Exec(context, query, tokenHash)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_delete_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByUserID removes every session of an account.
func (repository *PostgresSessionRepository) DeleteByUserID(context context.Context, userID string) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, sessionTable.Table, sessionTable.UserID)

	tag, err := repository.db.Exec(context, query, userID)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_delete_by_user_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

/*
DeleteExpired permanently removes all sessions that have passed their expiration.

Parameters:
  - context: context.Context
  - now: time.Time

Returns:
  - int64: Rows removed
  - error: Cleanup failures
*/
func (repository *PostgresSessionRepository) DeleteExpired(context context.Context, now time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s <= $1`, sessionTable.Table, sessionTable.ExpiresAt)

	tag, err := repository.db.Exec(context, query, now)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_delete_expired_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
