// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer

import (
	"context"
	"log/slog"
)

// ConsoleNotifier writes messages to the log instead of sending them. The
// full text is logged so a developer can follow verification and reset links.
type ConsoleNotifier struct {
	logger *slog.Logger
}

// NewConsoleNotifier creates a development notifier.
func NewConsoleNotifier(logger *slog.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger}
}

// Send implements [Notifier].
func (notifier *ConsoleNotifier) Send(ctx context.Context, message Message) error {
	notifier.logger.InfoContext(ctx, "email_console_delivery",
		slog.String("kind", message.Kind),
		slog.String("to", message.To),
		slog.String("subject", message.Subject),
		slog.String("text", message.Text),
	)
	return nil
}

// Mode implements [Notifier].
func (notifier *ConsoleNotifier) Mode() Mode { return ModeConsole }

// DisabledNotifier drops every message.
type DisabledNotifier struct {
	logger *slog.Logger
}

// NewDisabledNotifier creates a notifier that only records that mail was skipped.
func NewDisabledNotifier(logger *slog.Logger) *DisabledNotifier {
	return &DisabledNotifier{logger: logger}
}

// Send implements [Notifier].
func (notifier *DisabledNotifier) Send(ctx context.Context, message Message) error {
	notifier.logger.DebugContext(ctx, "email_delivery_disabled",
		slog.String("kind", message.Kind),
		slog.String("subject", message.Subject),
	)
	return nil
}

// Mode implements [Notifier].
func (notifier *DisabledNotifier) Mode() Mode { return ModeDisabled }
