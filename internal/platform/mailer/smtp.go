// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// implicitTLSPort is the SMTPS port; every other port negotiates STARTTLS.
const implicitTLSPort = 465

// Retry schedule for transient relay failures.
const (
	smtpRetryBase     = 500 * time.Millisecond
	smtpRetryAttempts = 3
)

// SMTPConfig holds relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// sendFunc matches [smtp.SendMail]; tests substitute a fake relay.
type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier delivers mail through an authenticated SMTP relay, retrying
// transient failures with exponential backoff.
type SMTPNotifier struct {
	config    SMTPConfig
	send      sendFunc
	now       func() time.Time
	retryBase time.Duration
}

// NewSMTPNotifier creates a relay-backed notifier.
func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	notifier := &SMTPNotifier{config: cfg, now: time.Now, retryBase: smtpRetryBase}
	if cfg.Port == implicitTLSPort {
		notifier.send = sendImplicitTLS
	} else {
		notifier.send = smtp.SendMail
	}
	return notifier
}

// Mode implements [Notifier].
func (notifier *SMTPNotifier) Mode() Mode { return ModeSMTP }

// Send implements [Notifier]. Permanent (5xx) SMTP replies are not retried.
func (notifier *SMTPNotifier) Send(ctx context.Context, message Message) error {
	payload, err := notifier.compose(message)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(notifier.config.Host, strconv.Itoa(notifier.config.Port))

	var auth smtp.Auth
	if notifier.config.Username != "" {
		auth = smtp.PlainAuth("", notifier.config.Username, notifier.config.Password, notifier.config.Host)
	}

	backoff := retry.WithMaxRetries(smtpRetryAttempts-1, retry.NewExponential(notifier.retryBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := notifier.send(addr, auth, notifier.config.From, []string{message.To}, payload)
		if err == nil {
			return nil
		}

		var reply *textproto.Error
		if errors.As(err, &reply) && reply.Code >= 500 {
			return fmt.Errorf("mailer: smtp rejected message: %w", err)
		}
		return retry.RetryableError(fmt.Errorf("mailer: smtp send failed: %w", err))
	})
}

// compose renders a multipart/alternative message with text and HTML parts.
func (notifier *SMTPNotifier) compose(message Message) ([]byte, error) {
	var body bytes.Buffer
	parts := multipart.NewWriter(&body)

	for _, part := range []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", message.Text},
		{"text/html; charset=UTF-8", message.HTML},
	} {
		if part.content == "" {
			continue
		}
		writer, err := parts.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, fmt.Errorf("mailer: compose failed: %w", err)
		}
		if _, err := writer.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("mailer: compose failed: %w", err)
		}
	}

	if err := parts.Close(); err != nil {
		return nil, fmt.Errorf("mailer: compose failed: %w", err)
	}

	var out bytes.Buffer
	headers := [][2]string{
		{"From", notifier.config.From},
		{"To", message.To},
		{"Subject", mime.QEncoding.Encode("UTF-8", message.Subject)},
		{"Date", notifier.now().UTC().Format(time.RFC1123Z)},
		{"Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), notifier.config.Host)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/alternative; boundary=" + parts.Boundary()},
	}
	for _, header := range headers {
		fmt.Fprintf(&out, "%s: %s\r\n", header[0], header[1])
	}
	out.WriteString("\r\n")
	out.Write(body.Bytes())

	return out.Bytes(), nil
}

// sendImplicitTLS speaks SMTPS: the TLS handshake happens before any SMTP traffic.
func sendImplicitTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12})
	if err != nil {
		return err
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, recipient := range to {
		if err := client.Rcpt(recipient); err != nil {
			return err
		}
	}

	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := writer.Write(msg); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	return client.Quit()
}
