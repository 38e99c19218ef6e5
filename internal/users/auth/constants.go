// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// ResetTokenTTL is the duration a password reset token remains valid.
	ResetTokenTTL = 1 * time.Hour

	// ResetTokenLength is the byte length of the random password reset token.
	ResetTokenLength = 32

	// VerificationTokenLength is the byte length of the random verification token.
	// Verification tokens do not expire; they are cleared on first use.
	VerificationTokenLength = 32

	// NameMaxLength bounds first and last names.
	NameMaxLength = 100
)

// ForgotPasswordMessage is returned for every forgot-password request.
const ForgotPasswordMessage = "If an account with that email exists, we sent a password reset link."

// Events reported to the metrics recorder.
const (
	EventRegister       = "register"
	EventLogin          = "login"
	EventRefresh        = "refresh"
	EventLogout         = "logout"
	EventForgotPassword = "forgot_password"
	EventResetPassword  = "reset_password"
	EventVerifyEmail    = "verify_email"
)
