// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/saas-starter/internal/platform/dberr"
	"github.com/taibuivan/saas-starter/internal/platform/mailer"
	"github.com/taibuivan/saas-starter/internal/platform/sec"
)

// # In-memory store

// memoryStore implements both repositories with the same conditional
// semantics as the Postgres statements.
type memoryStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
	sessions map[string]*Session

	// createErr, when set, is returned by the next account Create.
	createErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{accounts: map[string]*Account{}, sessions: map[string]*Session{}}
}

func cloneAccount(account *Account) *Account {
	copied := *account
	return &copied
}

func (store *memoryStore) Create(_ context.Context, account *Account) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.createErr != nil {
		err := store.createErr
		store.createErr = nil
		return err
	}
	for _, existing := range store.accounts {
		if strings.EqualFold(existing.Email, account.Email) {
			return dberr.ErrUniqueViolation
		}
	}
	store.accounts[account.ID] = cloneAccount(account)
	return nil
}

func (store *memoryStore) FindByID(_ context.Context, id string) (*Account, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	account, ok := store.accounts[id]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	return cloneAccount(account), nil
}

func (store *memoryStore) FindByEmail(_ context.Context, email string) (*Account, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, account := range store.accounts {
		if strings.EqualFold(account.Email, email) {
			return cloneAccount(account), nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (store *memoryStore) SetResetToken(_ context.Context, accountID, tokenHash string, expiresAt time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	account, ok := store.accounts[accountID]
	if !ok {
		return dberr.ErrNotFound
	}
	account.ResetTokenHash = &tokenHash
	account.ResetTokenExpiresAt = &expiresAt
	return nil
}

func (store *memoryStore) ConsumeResetToken(_ context.Context, tokenHash, passwordHash string, now time.Time) (string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, account := range store.accounts {
		if account.ResetTokenHash != nil && *account.ResetTokenHash == tokenHash && account.ResetTokenExpiresAt.After(now) {
			account.PasswordHash = passwordHash
			account.ResetTokenHash = nil
			account.ResetTokenExpiresAt = nil
			return account.ID, nil
		}
	}
	return "", dberr.ErrNotFound
}

func (store *memoryStore) ConsumeVerificationToken(_ context.Context, tokenHash string, _ time.Time) (string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, account := range store.accounts {
		if account.VerificationTokenHash != nil && *account.VerificationTokenHash == tokenHash {
			account.EmailVerified = true
			account.VerificationTokenHash = nil
			return account.ID, nil
		}
	}
	return "", dberr.ErrNotFound
}

// sessionStore adapts memoryStore to SessionRepository; Create collides by name otherwise.
type sessionStore struct{ *memoryStore }

func (store sessionStore) Create(_ context.Context, session *Session) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	copied := *session
	store.sessions[session.ID] = &copied
	return nil
}

func (store sessionStore) FindByTokenHash(_ context.Context, tokenHash string) (*Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, session := range store.sessions {
		if session.TokenHash == tokenHash {
			copied := *session
			if account, ok := store.accounts[session.UserID]; ok {
				copied.AccountActive = account.IsActive
			}
			return &copied, nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (store sessionStore) Rotate(_ context.Context, sessionID, oldHash, newHash string, expiresAt time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	session, ok := store.sessions[sessionID]
	if !ok || session.TokenHash != oldHash {
		return dberr.ErrNotFound
	}
	session.TokenHash = newHash
	session.ExpiresAt = expiresAt
	return nil
}

func (store sessionStore) DeleteByTokenHash(_ context.Context, tokenHash string) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	var removed int64
	for id, session := range store.sessions {
		if session.TokenHash == tokenHash {
			delete(store.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (store sessionStore) DeleteByUserID(_ context.Context, userID string) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	var removed int64
	for id, session := range store.sessions {
		if session.UserID == userID {
			delete(store.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (store sessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	var removed int64
	for id, session := range store.sessions {
		if !session.ExpiresAt.After(now) {
			delete(store.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (store *memoryStore) sessionCount(userID string) int {
	store.mu.Lock()
	defer store.mu.Unlock()

	count := 0
	for _, session := range store.sessions {
		if session.UserID == userID {
			count++
		}
	}
	return count
}

func (store *memoryStore) update(id string, mutate func(*Account)) {
	store.mu.Lock()
	defer store.mu.Unlock()
	mutate(store.accounts[id])
}

// # Notifier mock

type mockNotifier struct {
	mock.Mock
}

func (notifier *mockNotifier) Send(ctx context.Context, message mailer.Message) error {
	args := notifier.Called(ctx, message)
	return args.Error(0)
}

func (notifier *mockNotifier) Mode() mailer.Mode { return mailer.ModeConsole }

// lastMessage returns the most recent message of the given kind.
func (notifier *mockNotifier) lastMessage(t *testing.T, kind string) mailer.Message {
	t.Helper()

	for i := len(notifier.Calls) - 1; i >= 0; i-- {
		call := notifier.Calls[i]
		if call.Method != "Send" {
			continue
		}
		if message := call.Arguments.Get(1).(mailer.Message); message.Kind == kind {
			return message
		}
	}
	t.Fatalf("no %s message was sent", kind)
	return mailer.Message{}
}

// tokenFromLink extracts the token query value from an emailed link.
func tokenFromLink(t *testing.T, message mailer.Message) string {
	t.Helper()

	_, after, found := strings.Cut(message.Text, "?token=")
	require.True(t, found, "message carries no token link")
	return strings.Fields(after)[0]
}

// # Clock

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (clock *fakeClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

func (clock *fakeClock) Advance(d time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.now = clock.now.Add(d)
}

// # Recorder

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (log *eventLog) RecordAuthEvent(event, outcome string) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.events = append(log.events, event+":"+outcome)
}

// # Fixture

type fixture struct {
	service  *Service
	store    *memoryStore
	notifier *mockNotifier
	clock    *fakeClock
	tokens   *sec.TokenService
	events   *eventLog
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	clock := newFakeClock()
	tokens, err := sec.NewTokenService(sec.TokenConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "saas-starter.test",
	}, sec.WithClock(clock.Now))
	require.NoError(t, err)

	store := newMemoryStore()
	notifier := &mockNotifier{}
	notifier.On("Send", mock.Anything, mock.Anything).Return(nil).Maybe()
	events := &eventLog{}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	options := append([]Option{
		WithClientURL("https://app.example.com"),
		WithClock(clock.Now),
		WithEventRecorder(events),
	}, opts...)

	service := NewService(store, sessionStore{store}, sec.NewBcryptHasher(4), tokens, notifier, logger, options...)

	return &fixture{service: service, store: store, notifier: notifier, clock: clock, tokens: tokens, events: events}
}

func (f *fixture) register(t *testing.T, email, password string) *AccountView {
	t.Helper()

	view, err := f.service.Register(context.Background(), RegisterInput{
		Email: email, Password: password, FirstName: "A", LastName: "B",
	})
	require.NoError(t, err)
	return view
}
