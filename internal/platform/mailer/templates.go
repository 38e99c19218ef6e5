// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"
)

// Message kinds, also used as the AMQP message type.
const (
	KindVerifyEmail   = "verify_email"
	KindPasswordReset = "password_reset"
)

var (
	verifyEmailHTML = template.Must(template.New(KindVerifyEmail).Parse(
		`<h1>Welcome to SaaS Starter!</h1>
<p>Please click the link below to verify your email:</p>
<p><a href="{{.Link}}">Verify Email</a></p>`))

	passwordResetHTML = template.Must(template.New(KindPasswordReset).Parse(
		`<h1>Password Reset</h1>
<p>Click the link below to reset your password:</p>
<p><a href="{{.Link}}">Reset Password</a></p>
<p>This link expires in 1 hour.</p>`))
)

// VerificationEmail builds the message carrying an email-verification link.
func VerificationEmail(to, clientURL, token string) Message {
	link := buildLink(clientURL, "/verify-email", token)
	return Message{
		Kind:    KindVerifyEmail,
		To:      to,
		Subject: "Verify Your Email",
		Text:    "Welcome to SaaS Starter! Verify your email by opening this link: " + link,
		HTML:    render(verifyEmailHTML, link),
	}
}

// PasswordResetEmail builds the message carrying a password-reset link.
func PasswordResetEmail(to, clientURL, token string) Message {
	link := buildLink(clientURL, "/reset-password", token)
	return Message{
		Kind:    KindPasswordReset,
		To:      to,
		Subject: "Password Reset",
		Text:    "Reset your password by opening this link (it expires in 1 hour): " + link,
		HTML:    render(passwordResetHTML, link),
	}
}

func buildLink(clientURL, path, token string) string {
	return strings.TrimRight(clientURL, "/") + path + "?" + url.Values{"token": {token}}.Encode()
}

func render(tmpl *template.Template, link string) string {
	var out bytes.Buffer
	// The templates are static and the data is a single string, so Execute cannot fail.
	_ = tmpl.Execute(&out, struct{ Link string }{Link: link})
	return out.String()
}
