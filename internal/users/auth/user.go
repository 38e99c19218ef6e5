// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements account identity and the refresh-token session lifecycle.

It defines the core domain entities (Account, Session) and the service that
registers accounts, authenticates them and redeems one-shot email tokens.

# Architecture

Entities carry no storage concerns. Secret material (password digest, token
digests) lives on the entity but never leaves it: handlers only ever serialise
[AccountView].
*/
package auth

import (
	"time"

	"github.com/taibuivan/saas-starter/internal/platform/sec"
)

// # Domain Entities

// Account represents a registered member.
type Account struct {
	ID            string       `json:"id"`
	Email         string       `json:"email"`
	PasswordHash  string       `json:"-"`
	FirstName     string       `json:"firstName"`
	LastName      string       `json:"lastName"`
	Role          sec.UserRole `json:"role"`
	IsActive      bool         `json:"isActive"`
	EmailVerified bool         `json:"emailVerified"`

	// One-shot credentials, stored as SHA-256 digests of the emailed value.
	VerificationTokenHash *string    `json:"-"`
	ResetTokenHash        *string    `json:"-"`
	ResetTokenExpiresAt   *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AccountView is the public projection of an [Account].
type AccountView struct {
	ID            string       `json:"id"`
	Email         string       `json:"email"`
	FirstName     string       `json:"firstName"`
	LastName      string       `json:"lastName"`
	Role          sec.UserRole `json:"role"`
	IsActive      bool         `json:"isActive"`
	EmailVerified bool         `json:"emailVerified"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// View strips credentials from the account.
func (account *Account) View() *AccountView {
	return &AccountView{
		ID:            account.ID,
		Email:         account.Email,
		FirstName:     account.FirstName,
		LastName:      account.LastName,
		Role:          account.Role,
		IsActive:      account.IsActive,
		EmailVerified: account.EmailVerified,
		CreatedAt:     account.CreatedAt,
		UpdatedAt:     account.UpdatedAt,
	}
}

// Identity returns the authorization view of the account.
func (account *Account) Identity() *sec.Identity {
	return &sec.Identity{UserID: account.ID, Email: account.Email, Role: account.Role}
}

// Session represents an issued refresh token.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TokenHash string    `json:"-"` // SHA-256 of the refresh JWT.
	UserAgent string    `json:"userAgent"`
	IPAddress string    `json:"ipAddress"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`

	// AccountActive is read from the owning account on lookup; it is not a column.
	AccountActive bool `json:"-"`
}

// ValidAt reports whether the session can still be redeemed at now.
func (session *Session) ValidAt(now time.Time) bool {
	return session.AccountActive && now.Before(session.ExpiresAt)
}

// # Field Identifiers

// JSON and validation field names used by the authentication endpoints.
const (
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldFirstName    = "firstName"
	FieldLastName     = "lastName"
	FieldToken        = "token"
	FieldRefreshToken = "refreshToken"
	FieldAccessToken  = "accessToken"
	FieldUser         = "user"
)
