// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via the [TokenIssuer] and [PasswordHasher] interfaces.
//
// Access and refresh tokens are signed with distinct HMAC keys, so a leaked
// access key cannot mint refresh tokens and vice versa.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type discriminators carried in the "typ" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrTokenInvalid is returned for any token that fails verification:
// bad signature, wrong key or type, malformed payload, or expiry.
var ErrTokenInvalid = errors.New("sec: token invalid")

// AuthClaims represents the payload embedded inside a signed token.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID    string `json:"uid"`
	TokenType string `json:"typ"`
}

// Token is a signed token string and the instant it stops being valid.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// TokenIssuer is the contract the auth service depends on.
type TokenIssuer interface {
	IssueAccessToken(userID string) (Token, error)
	IssueRefreshToken(userID string) (Token, error)
	VerifyAccessToken(tokenString string) (*AuthClaims, error)
	VerifyRefreshToken(tokenString string) (*AuthClaims, error)
}

// TokenConfig holds the keys and lifetimes for a [TokenService].
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// TokenService handles generation and verification of JWT tokens using HS256.
type TokenService struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	now        func() time.Time
}

// TokenOption customises a [TokenService].
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) TokenOption {
	return func(service *TokenService) {
		service.now = now
	}
}

// NewTokenService creates a new TokenService.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("sec: signing secrets must not be empty")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("sec: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("sec: token lifetimes must be positive")
	}

	service := &TokenService{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		issuer:     cfg.Issuer,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// AccessTTL returns the configured access-token lifetime.
func (service *TokenService) AccessTTL() time.Duration { return service.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (service *TokenService) RefreshTTL() time.Duration { return service.refreshTTL }

// IssueAccessToken creates a short-lived access token for a user.
func (service *TokenService) IssueAccessToken(userID string) (Token, error) {
	return service.issue(userID, TokenTypeAccess, service.accessKey, service.accessTTL)
}

// IssueRefreshToken creates a long-lived refresh token for a user.
func (service *TokenService) IssueRefreshToken(userID string) (Token, error) {
	return service.issue(userID, TokenTypeRefresh, service.refreshKey, service.refreshTTL)
}

// VerifyAccessToken checks the signature and validity of an access token.
func (service *TokenService) VerifyAccessToken(tokenString string) (*AuthClaims, error) {
	return service.verify(tokenString, TokenTypeAccess, service.accessKey)
}

// VerifyRefreshToken checks the signature and validity of a refresh token.
func (service *TokenService) VerifyRefreshToken(tokenString string) (*AuthClaims, error) {
	return service.verify(tokenString, TokenTypeRefresh, service.refreshKey)
}

func (service *TokenService) issue(userID, tokenType string, key []byte, timeToLive time.Duration) (Token, error) {
	currentTime := service.now()
	expiresAt := currentTime.Add(timeToLive)

	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:    userID,
		TokenType: tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(key)
	if err != nil {
		return Token{}, fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return Token{Value: signedToken, ExpiresAt: expiresAt}, nil
}

func (service *TokenService) verify(tokenString, tokenType string, key []byte) (*AuthClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	)

	claims := &AuthClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid || claims.TokenType != tokenType || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
