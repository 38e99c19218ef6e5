// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mailer delivers transactional email (verification and password-reset
links) on behalf of the auth service.

# Lifecycle

Exactly one [Notifier] is selected at startup by [New]:

  - smtp: direct delivery through an SMTP relay.
  - queue: JSON jobs published to RabbitMQ for an external mail worker.
  - console: development fallback that writes the message to the log.
  - disabled: messages are dropped.

Delivery is best-effort. Callers wrap the notifier in a [Dispatcher] so a slow
or failing relay never blocks or fails the request that triggered the email.
*/
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/saas-starter/internal/platform/config"
)

// Mode names a notifier implementation.
type Mode string

const (
	ModeSMTP     Mode = "smtp"
	ModeQueue    Mode = "queue"
	ModeConsole  Mode = "console"
	ModeDisabled Mode = "disabled"
)

// Message is a single outgoing email.
type Message struct {
	Kind    string `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// Notifier sends one message.
type Notifier interface {
	Send(ctx context.Context, message Message) error
	Mode() Mode
}

// ResolveMode picks the notifier mode: the explicit EMAIL_MODE wins, then SMTP
// when a relay is fully configured, then console in development, else disabled.
func ResolveMode(cfg config.EmailConfig, development bool) (Mode, error) {
	switch Mode(cfg.Mode) {
	case ModeSMTP, ModeQueue, ModeConsole, ModeDisabled:
		return Mode(cfg.Mode), nil
	case "":
	default:
		return "", fmt.Errorf("mailer: unknown EMAIL_MODE %q", cfg.Mode)
	}

	if cfg.SMTPHost != "" && cfg.SMTPUser != "" && cfg.SMTPPassword != "" {
		return ModeSMTP, nil
	}
	if development {
		return ModeConsole, nil
	}
	return ModeDisabled, nil
}

// New builds the notifier for cfg. The returned close function releases any
// broker connection and is always non-nil.
func New(cfg config.EmailConfig, development bool, logger *slog.Logger) (Notifier, func() error, error) {
	noop := func() error { return nil }

	mode, err := ResolveMode(cfg, development)
	if err != nil {
		return nil, noop, err
	}

	logger.Info("mailer_selected", slog.String("mode", string(mode)))

	switch mode {
	case ModeSMTP:
		if cfg.SMTPHost == "" {
			return nil, noop, fmt.Errorf("mailer: SMTP_HOST is required in smtp mode")
		}
		return NewSMTPNotifier(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.From,
		}), noop, nil

	case ModeQueue:
		notifier, err := DialQueueNotifier(cfg.AMQPURL, cfg.Queue)
		if err != nil {
			return nil, noop, err
		}
		return notifier, notifier.Close, nil

	case ModeConsole:
		return NewConsoleNotifier(logger), noop, nil

	default:
		return NewDisabledNotifier(logger), noop, nil
	}
}
