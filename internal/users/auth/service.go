// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"github.com/taibuivan/saas-starter/internal/platform/apperr"
	"github.com/taibuivan/saas-starter/internal/platform/dberr"
	"github.com/taibuivan/saas-starter/internal/platform/mailer"
	"github.com/taibuivan/saas-starter/internal/platform/metrics"
	"github.com/taibuivan/saas-starter/internal/platform/sec"
	"github.com/taibuivan/saas-starter/pkg/uuid"
)

// # Contracts & Types

// EventRecorder receives one call per finished auth flow.
type EventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAuthEvent(string, string) {}

// Service implements the authentication use cases.
//
// # Review Process
//
// This service is critical for security. InvalidCredentials and TokenInvalid
// are deliberately returned for several distinct sub-causes; keep it that way.
type Service struct {
	accounts AccountRepository
	sessions SessionRepository
	hasher   sec.PasswordHasher
	tokens   sec.TokenIssuer
	notifier mailer.Notifier
	logger   *slog.Logger

	clientURL     string
	revokeOnReset bool
	recorder      EventRecorder
	now           func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// Option customises a [Service].
type Option func(*Service)

// WithClientURL sets the front-end origin used to build emailed links.
func WithClientURL(clientURL string) Option {
	return func(service *Service) { service.clientURL = clientURL }
}

// WithRevokeSessionsOnReset controls whether a password reset signs out every device.
func WithRevokeSessionsOnReset(revoke bool) Option {
	return func(service *Service) { service.revokeOnReset = revoke }
}

// WithEventRecorder reports flow outcomes, typically to Prometheus.
func WithEventRecorder(recorder EventRecorder) Option {
	return func(service *Service) {
		if recorder != nil {
			service.recorder = recorder
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(service *Service) { service.now = now }
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	accounts AccountRepository,
	sessions SessionRepository,
	hasher sec.PasswordHasher,
	tokens sec.TokenIssuer,
	notifier mailer.Notifier,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	service := &Service{
		accounts:      accounts,
		sessions:      sessions,
		hasher:        hasher,
		tokens:        tokens,
		notifier:      notifier,
		logger:        logger,
		revokeOnReset: true,
		recorder:      nopRecorder{},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// NormalizeEmail trims and case-folds an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

/*
Register validates, hashes, and persists a brand new account.

Description: The account starts active and unverified. A verification link is
emailed best-effort; delivery failure never fails the registration.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *AccountView: Created account
  - error: DuplicateAccount or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*AccountView, error) {
	email := NormalizeEmail(input.Email)

	_, err := service.accounts.FindByEmail(context, email)
	switch {
	case err == nil:
		service.recorder.RecordAuthEvent(EventRegister, metrics.OutcomeFailure)
		return nil, apperr.DuplicateAccount()
	case !errors.Is(err, dberr.ErrNotFound):
		return nil, service.fail(EventRegister, fmt.Errorf("auth_service_register_lookup_failed: %w", err))
	}

	passwordHash, err := service.hashPassword(input.Password)
	if err != nil {
		if apperr.As(err) != nil {
			service.recorder.RecordAuthEvent(EventRegister, metrics.OutcomeFailure)
			return nil, err
		}
		return nil, service.fail(EventRegister, err)
	}

	verificationToken, err := sec.GenerateSecureToken(VerificationTokenLength)
	if err != nil {
		return nil, service.fail(EventRegister, fmt.Errorf("auth_service_verification_token_failed: %w", err))
	}
	verificationHash := sec.HashToken(verificationToken)

	now := service.now().UTC()
	account := &Account{
		ID:                    uuid.New(),
		Email:                 email,
		PasswordHash:          passwordHash,
		FirstName:             strings.TrimSpace(input.FirstName),
		LastName:              strings.TrimSpace(input.LastName),
		Role:                  sec.RoleUser,
		IsActive:              true,
		EmailVerified:         false,
		VerificationTokenHash: &verificationHash,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	// The lookup above is advisory; the unique index settles concurrent registrations.
	if err := service.accounts.Create(context, account); err != nil {
		if errors.Is(err, dberr.ErrUniqueViolation) {
			service.recorder.RecordAuthEvent(EventRegister, metrics.OutcomeFailure)
			return nil, apperr.DuplicateAccount()
		}
		return nil, service.fail(EventRegister, fmt.Errorf("auth_service_register_failed: %w", err))
	}

	service.notify(context, mailer.VerificationEmail(account.Email, service.clientURL, verificationToken))
	service.recorder.RecordAuthEvent(EventRegister, metrics.OutcomeSuccess)

	return account.View(), nil
}

/*
Provision creates a verified account with an explicit role, without email.
Used by the operator CLI to seed administrators.

Parameters:
  - context: context.Context
  - input: RegisterInput
  - role: sec.UserRole

Returns:
  - *AccountView: Created account
  - error: DuplicateAccount, validation or storage errors
*/
func (service *Service) Provision(context context.Context, input RegisterInput, role sec.UserRole) (*AccountView, error) {
	if !role.Valid() {
		return nil, apperr.ValidationError(fmt.Sprintf("Unknown role %q", role))
	}

	passwordHash, err := service.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := service.now().UTC()
	account := &Account{
		ID:            uuid.New(),
		Email:         NormalizeEmail(input.Email),
		PasswordHash:  passwordHash,
		FirstName:     strings.TrimSpace(input.FirstName),
		LastName:      strings.TrimSpace(input.LastName),
		Role:          role,
		IsActive:      true,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := service.accounts.Create(context, account); err != nil {
		if errors.Is(err, dberr.ErrUniqueViolation) {
			return nil, apperr.DuplicateAccount()
		}
		return nil, fmt.Errorf("auth_service_provision_failed: %w", err)
	}

	return account.View(), nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// TokenPair is a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// LoginResult represents a successfully established session.
type LoginResult struct {
	Account *AccountView
	TokenPair
}

/*
Login validates credentials and opens a new session.

Description: Unknown email, inactive account and wrong password all yield the
same InvalidCredentials error. A dummy hash comparison runs for unknown emails
so the response time is comparable.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginResult: Account view and token pair
  - error: InvalidCredentials or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginResult, error) {
	account, err := service.accounts.FindByEmail(context, NormalizeEmail(input.Email))
	if err != nil {
		if !errors.Is(err, dberr.ErrNotFound) {
			return nil, service.fail(EventLogin, fmt.Errorf("auth_service_login_lookup_failed: %w", err))
		}
		service.hasher.Verify(input.Password, service.dummyDigest())
		service.recorder.RecordAuthEvent(EventLogin, metrics.OutcomeFailure)
		return nil, apperr.InvalidCredentials()
	}

	// Verify first so inactive accounts cost the same as wrong passwords.
	passwordOK := service.hasher.Verify(input.Password, account.PasswordHash)
	if !passwordOK || !account.IsActive {
		service.recorder.RecordAuthEvent(EventLogin, metrics.OutcomeFailure)
		return nil, apperr.InvalidCredentials()
	}

	pair, err := service.issuePair(account.ID)
	if err != nil {
		return nil, service.fail(EventLogin, err)
	}

	session := &Session{
		ID:        uuid.New(),
		UserID:    account.ID,
		TokenHash: sec.HashToken(pair.RefreshToken),
		UserAgent: input.UserAgent,
		IPAddress: input.IPAddress,
		ExpiresAt: pair.RefreshTokenExpiresAt,
		CreatedAt: service.now().UTC(),
	}

	if err := service.sessions.Create(context, session); err != nil {
		return nil, service.fail(EventLogin, fmt.Errorf("auth_service_session_creation_failed: %w", err))
	}

	service.recorder.RecordAuthEvent(EventLogin, metrics.OutcomeSuccess)

	return &LoginResult{Account: account.View(), TokenPair: *pair}, nil
}

// # Session Management

/*
Refresh implements refresh-token rotation.

Description: The presented token must verify, match a stored session of an
active account and not be past the session expiry. The session row is then
rewritten in place to the new token, conditioned on the old digest, so the
presented token can never be redeemed again.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *TokenPair: Rotated credentials
  - error: TokenInvalid or storage failures
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := service.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, service.reject(EventRefresh)
	}

	oldHash := sec.HashToken(refreshToken)
	session, err := service.sessions.FindByTokenHash(context, oldHash)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, service.reject(EventRefresh)
		}
		return nil, service.fail(EventRefresh, fmt.Errorf("auth_service_refresh_lookup_failed: %w", err))
	}

	if session.UserID != claims.UserID || !session.ValidAt(service.now()) {
		return nil, service.reject(EventRefresh)
	}

	pair, err := service.issuePair(session.UserID)
	if err != nil {
		return nil, service.fail(EventRefresh, err)
	}

	err = service.sessions.Rotate(context, session.ID, oldHash, sec.HashToken(pair.RefreshToken), pair.RefreshTokenExpiresAt)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, service.reject(EventRefresh)
		}
		return nil, service.fail(EventRefresh, fmt.Errorf("auth_service_refresh_rotate_failed: %w", err))
	}

	service.recorder.RecordAuthEvent(EventRefresh, metrics.OutcomeSuccess)

	return pair, nil
}

/*
Logout deletes the session holding the refresh token.

Description: Idempotent. An empty or unknown token is not an error.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - error: Storage failures only
*/
func (service *Service) Logout(context context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if _, err := service.sessions.DeleteByTokenHash(context, sec.HashToken(refreshToken)); err != nil {
		return service.fail(EventLogout, fmt.Errorf("auth_service_logout_failed: %w", err))
	}

	service.recorder.RecordAuthEvent(EventLogout, metrics.OutcomeSuccess)
	return nil
}

// PurgeExpiredSessions removes session rows past their expiry.
func (service *Service) PurgeExpiredSessions(context context.Context) (int64, error) {
	removed, err := service.sessions.DeleteExpired(context, service.now())
	if err != nil {
		return 0, fmt.Errorf("auth_service_purge_sessions_failed: %w", err)
	}
	return removed, nil
}

// # Password Recovery

/*
ForgotPassword initiates the password reset flow.

Description: Always returns [ForgotPasswordMessage]. When the account exists a
fresh token replaces any pending one and a reset link is emailed best-effort.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - string: The generic confirmation message
  - error: Storage failures
*/
func (service *Service) ForgotPassword(context context.Context, email string) (string, error) {
	account, err := service.accounts.FindByEmail(context, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			service.recorder.RecordAuthEvent(EventForgotPassword, metrics.OutcomeSuccess)
			return ForgotPasswordMessage, nil
		}
		return "", service.fail(EventForgotPassword, fmt.Errorf("auth_service_forgot_lookup_failed: %w", err))
	}

	resetToken, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return "", service.fail(EventForgotPassword, fmt.Errorf("auth_service_generate_reset_token_failed: %w", err))
	}

	expiresAt := service.now().UTC().Add(ResetTokenTTL)
	if err := service.accounts.SetResetToken(context, account.ID, sec.HashToken(resetToken), expiresAt); err != nil {
		return "", service.fail(EventForgotPassword, fmt.Errorf("auth_service_save_reset_token_failed: %w", err))
	}

	service.notify(context, mailer.PasswordResetEmail(account.Email, service.clientURL, resetToken))
	service.recorder.RecordAuthEvent(EventForgotPassword, metrics.OutcomeSuccess)

	return ForgotPasswordMessage, nil
}

/*
ResetPassword completes the forgot-password flow.

Description: Consumes the token and stores the new hash in one conditional
update. Wrong, expired and already-used tokens are indistinguishable. When
revocation is enabled every session of the account is then deleted.

Parameters:
  - context: context.Context
  - token: string
  - newPassword: string

Returns:
  - error: TokenInvalid or update failures
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) error {
	if token == "" {
		return service.reject(EventResetPassword)
	}

	passwordHash, err := service.hashPassword(newPassword)
	if err != nil {
		if apperr.As(err) != nil {
			service.recorder.RecordAuthEvent(EventResetPassword, metrics.OutcomeFailure)
			return err
		}
		return service.fail(EventResetPassword, err)
	}

	accountID, err := service.accounts.ConsumeResetToken(context, sec.HashToken(token), passwordHash, service.now().UTC())
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return service.reject(EventResetPassword)
		}
		return service.fail(EventResetPassword, fmt.Errorf("auth_service_reset_password_update_failed: %w", err))
	}

	if service.revokeOnReset {
		// The password is already changed; a failed sweep is logged, not surfaced.
		if _, err := service.sessions.DeleteByUserID(context, accountID); err != nil {
			service.logger.ErrorContext(context, "auth_reset_revoke_sessions_failed",
				slog.String("user_id", accountID),
				slog.Any("error", err),
			)
		}
	}

	service.recorder.RecordAuthEvent(EventResetPassword, metrics.OutcomeSuccess)
	return nil
}

/*
VerifyEmail confirms a user's email address using a secure token.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: TokenInvalid or database errors
*/
func (service *Service) VerifyEmail(context context.Context, token string) error {
	if token == "" {
		return service.reject(EventVerifyEmail)
	}

	if _, err := service.accounts.ConsumeVerificationToken(context, sec.HashToken(token), service.now().UTC()); err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return service.reject(EventVerifyEmail)
		}
		return service.fail(EventVerifyEmail, fmt.Errorf("auth_service_verify_email_failed: %w", err))
	}

	service.recorder.RecordAuthEvent(EventVerifyEmail, metrics.OutcomeSuccess)
	return nil
}

// # Identity

// Profile returns the public view of the caller's account.
func (service *Service) Profile(context context.Context, accountID string) (*AccountView, error) {
	account, err := service.accounts.FindByID(context, accountID)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("auth_service_profile_failed: %w", err)
	}
	return account.View(), nil
}

/*
ResolveIdentity maps a verified access-token subject onto a live identity.

Returns (nil, nil) when the account no longer exists or is inactive, so the
middleware can reject the bearer without treating it as a server fault.
*/
func (service *Service) ResolveIdentity(context context.Context, accountID string) (*sec.Identity, error) {
	account, err := service.accounts.FindByID(context, accountID)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("auth_service_resolve_identity_failed: %w", err)
	}
	if !account.IsActive {
		return nil, nil
	}
	return account.Identity(), nil
}

// # Internal

func (service *Service) issuePair(accountID string) (*TokenPair, error) {
	access, err := service.tokens.IssueAccessToken(accountID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	refresh, err := service.tokens.IssueRefreshToken(accountID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	return &TokenPair{
		AccessToken:           access.Value,
		AccessTokenExpiresAt:  access.ExpiresAt,
		RefreshToken:          refresh.Value,
		RefreshTokenExpiresAt: refresh.ExpiresAt,
	}, nil
}

// notify hands a message to the notifier and swallows any error.
// hashPassword reports an over-long password as a field error rather than
// an internal failure.
func (service *Service) hashPassword(password string) (string, error) {
	digest, err := service.hasher.Hash(password)
	if errors.Is(err, sec.ErrPasswordTooLong) {
		return "", apperr.ValidationError("Validation failed",
			apperr.FieldError{Field: FieldPassword, Message: "Password must be at most 72 bytes long"})
	}
	if err != nil {
		return "", fmt.Errorf("auth_service_hash_failed: %w", err)
	}
	return digest, nil
}

func (service *Service) notify(context context.Context, message mailer.Message) {
	if err := service.notifier.Send(context, message); err != nil {
		service.logger.WarnContext(context, "auth_email_send_failed",
			slog.String("kind", message.Kind),
			slog.Any("error", err),
		)
	}
}

func (service *Service) reject(event string) error {
	service.recorder.RecordAuthEvent(event, metrics.OutcomeFailure)
	return apperr.TokenInvalid()
}

func (service *Service) fail(event string, err error) error {
	service.recorder.RecordAuthEvent(event, metrics.OutcomeError)
	return err
}

// dummyDigest lazily hashes a fixed password at the configured cost.
func (service *Service) dummyDigest() string {
	service.dummyOnce.Do(func() {
		digest, err := service.hasher.Hash("dummy-password-for-timing")
		if err != nil {
			service.logger.Error("auth_dummy_hash_failed", slog.Any("error", err))
			return
		}
		service.dummyHash = digest
	})
	return service.dummyHash
}
