// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/smtp"
	"net/textproto"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/taibuivan/saas-starter/internal/platform/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestResolveMode(t *testing.T) {
	relay := config.EmailConfig{SMTPHost: "smtp.example.com", SMTPUser: "u", SMTPPassword: "p"}

	tests := []struct {
		name        string
		cfg         config.EmailConfig
		development bool
		want        Mode
		wantErr     bool
	}{
		{"explicit queue", config.EmailConfig{Mode: "queue"}, false, ModeQueue, false},
		{"explicit disabled beats relay", config.EmailConfig{Mode: "disabled", SMTPHost: "h", SMTPUser: "u", SMTPPassword: "p"}, true, ModeDisabled, false},
		{"configured relay", relay, false, ModeSMTP, false},
		{"development fallback", config.EmailConfig{}, true, ModeConsole, false},
		{"production without relay", config.EmailConfig{SMTPHost: "h"}, false, ModeDisabled, false},
		{"unknown mode", config.EmailConfig{Mode: "pigeon"}, false, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := ResolveMode(tt.cfg, tt.development)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, mode)
		})
	}
}

func TestNew_ConsoleAndDisabled(t *testing.T) {
	notifier, closeFn, err := New(config.EmailConfig{}, true, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, closeFn)
	assert.Equal(t, ModeConsole, notifier.Mode())
	assert.NoError(t, notifier.Send(context.Background(), Message{To: "a@x.com"}))

	notifier, _, err = New(config.EmailConfig{}, false, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, ModeDisabled, notifier.Mode())
}

func TestNew_QueueRequiresURL(t *testing.T) {
	_, _, err := New(config.EmailConfig{Mode: "queue"}, false, discardLogger())
	assert.Error(t, err)
}

type fakeRelay struct {
	mu       sync.Mutex
	failures []error
	calls    int
	lastMsg  []byte
	lastTo   []string
}

func (relay *fakeRelay) send(_ string, _ smtp.Auth, _ string, to []string, msg []byte) error {
	relay.mu.Lock()
	defer relay.mu.Unlock()

	relay.calls++
	relay.lastMsg = msg
	relay.lastTo = to
	if len(relay.failures) > 0 {
		err := relay.failures[0]
		relay.failures = relay.failures[1:]
		return err
	}
	return nil
}

func newTestSMTPNotifier(relay *fakeRelay) *SMTPNotifier {
	notifier := NewSMTPNotifier(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "noreply@example.com"})
	notifier.send = relay.send
	notifier.retryBase = time.Millisecond
	notifier.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return notifier
}

func TestSMTPNotifier_ComposesMultipartMessage(t *testing.T) {
	relay := &fakeRelay{}
	notifier := newTestSMTPNotifier(relay)

	err := notifier.Send(context.Background(), VerificationEmail("a@x.com", "https://app.example.com", "tok123"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a@x.com"}, relay.lastTo)
	raw := string(relay.lastMsg)
	assert.Contains(t, raw, "Subject: Verify Your Email\r\n")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "https://app.example.com/verify-email?token=tok123")
}

func TestSMTPNotifier_RetriesTransientFailures(t *testing.T) {
	relay := &fakeRelay{failures: []error{errors.New("connection reset"), &textproto.Error{Code: 421, Msg: "try later"}}}
	notifier := newTestSMTPNotifier(relay)

	require.NoError(t, notifier.Send(context.Background(), Message{To: "a@x.com", Subject: "s", Text: "t"}))
	assert.Equal(t, 3, relay.calls)
}

func TestSMTPNotifier_DoesNotRetryPermanentRejection(t *testing.T) {
	relay := &fakeRelay{failures: []error{&textproto.Error{Code: 550, Msg: "mailbox unavailable"}}}
	notifier := newTestSMTPNotifier(relay)

	err := notifier.Send(context.Background(), Message{To: "nobody@x.com", Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.Equal(t, 1, relay.calls)
}

func TestSMTPNotifier_GivesUpAfterMaxAttempts(t *testing.T) {
	boom := errors.New("dial tcp: i/o timeout")
	relay := &fakeRelay{failures: []error{boom, boom, boom, boom}}
	notifier := newTestSMTPNotifier(relay)

	err := notifier.Send(context.Background(), Message{To: "a@x.com", Text: "t"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, smtpRetryAttempts, relay.calls)
}

type fakePublisher struct {
	key string
	msg amqp.Publishing
	err error
}

func (publisher *fakePublisher) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	publisher.key = key
	publisher.msg = msg
	return publisher.err
}

func TestQueueNotifier_PublishesPersistentJSONJob(t *testing.T) {
	publisher := &fakePublisher{}
	notifier := NewQueueNotifier(publisher, "email.outbound")

	message := PasswordResetEmail("a@x.com", "https://app.example.com/", "tok")
	require.NoError(t, notifier.Send(context.Background(), message))

	assert.Equal(t, "email.outbound", publisher.key)
	assert.Equal(t, amqp.Persistent, publisher.msg.DeliveryMode)
	assert.Equal(t, KindPasswordReset, publisher.msg.Type)

	var decoded Message
	require.NoError(t, json.Unmarshal(publisher.msg.Body, &decoded))
	assert.Equal(t, message, decoded)

	publisher.err = errors.New("channel closed")
	assert.Error(t, notifier.Send(context.Background(), message))
}

type failingNotifier struct {
	mu    sync.Mutex
	sent  []Message
	err   error
	ctxOK bool
}

func (notifier *failingNotifier) Send(ctx context.Context, message Message) error {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()

	_, hasDeadline := ctx.Deadline()
	notifier.ctxOK = hasDeadline && ctx.Err() == nil
	notifier.sent = append(notifier.sent, message)
	return notifier.err
}

func (notifier *failingNotifier) Mode() Mode { return ModeSMTP }

type countingRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (recorder *countingRecorder) RecordEmailDelivery(_, outcome string) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.outcomes = append(recorder.outcomes, outcome)
}

/*
TestDispatcher_DetachesFromCallerAndSwallowsErrors verifies a cancelled
request context does not abort delivery and that failures are not returned.
*/
func TestDispatcher_DetachesFromCallerAndSwallowsErrors(t *testing.T) {
	inner := &failingNotifier{err: errors.New("relay down")}
	recorder := &countingRecorder{}
	dispatcher := NewDispatcher(inner, discardLogger(), recorder)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, dispatcher.Send(ctx, Message{Kind: KindVerifyEmail, To: "a@x.com"}))
	dispatcher.Wait()

	assert.Len(t, inner.sent, 1)
	assert.True(t, inner.ctxOK)
	assert.Equal(t, []string{"error"}, recorder.outcomes)
	assert.Equal(t, ModeSMTP, dispatcher.Mode())
}

func TestTemplates_EscapeTokenInLink(t *testing.T) {
	message := VerificationEmail("a@x.com", "https://app.example.com/", "a b&c")
	assert.Contains(t, message.Text, "https://app.example.com/verify-email?token=a+b%26c")
	assert.NotContains(t, message.HTML, "a b&c")
}
