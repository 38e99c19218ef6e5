// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taibuivan/saas-starter/internal/platform/apperr"
	"github.com/taibuivan/saas-starter/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/saas-starter/internal/platform/request"
	"github.com/taibuivan/saas-starter/internal/platform/respond"
	"github.com/taibuivan/saas-starter/internal/platform/sec"
)

// TokenVerifier checks bearer access tokens. Implemented by [sec.TokenService].
type TokenVerifier interface {
	VerifyAccessToken(tokenString string) (*sec.AuthClaims, error)
}

// IdentityResolver loads the current role and status of the account a token
// names. It returns (nil, nil) when the account no longer exists or is inactive.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, accountID string) (*sec.Identity, error)
}

// Rejection messages surfaced by the guards.
const (
	msgAuthRequired  = "Authentication required"
	msgInvalidFormat = "Invalid authorization format"
	msgInvalidToken  = "Invalid or expired token"
)

// Authenticate extracts and verifies the JWT from the Authorization header.
//
// # Flow
//  1. No 'Authorization' header: the request proceeds as anonymous.
//  2. Malformed header, a token that fails verification, or a subject that no
//     longer resolves to an active account: the request proceeds as anonymous
//     with the rejection reason recorded for [RequireAuth] and [RequireRole].
//  3. Otherwise the [*sec.Identity] is injected into the request context.
//
// Public routes such as login, refresh and logout stay reachable for a client
// still holding an expired access token; only guarded routes answer 401.
//
// Roles are read from the account on every request rather than from the
// token, so demotions and deactivations apply before the token expires.
func Authenticate(verifier TokenVerifier, resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			token, present := requestutil.BearerToken(request)

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if !present {
				next.ServeHTTP(writer, request)
				return
			}

			reject := func(reason string) {
				next.ServeHTTP(writer, request.WithContext(ctxutil.WithAuthRejection(request.Context(), reason)))
			}

			// ── 2. Token Verification ─────────────────────────────────────────
			if token == "" {
				reject(msgInvalidFormat)
				return
			}

			claims, err := verifier.VerifyAccessToken(token)
			if err != nil {
				reject(msgInvalidToken)
				return
			}

			identity, err := resolver.ResolveIdentity(request.Context(), claims.UserID)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}
			if identity == nil {
				reject(msgInvalidToken)
				return
			}

			// ── 3. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithIdentity(request.Context(), identity)
			logger := ctxutil.GetLogger(ctx).With(slog.String("user_id", identity.UserID))
			ctx = ctxutil.WithLogger(ctx, logger)

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// unauthenticated answers 401, preferring the reason [Authenticate] recorded.
func unauthenticated(writer http.ResponseWriter, request *http.Request) {
	message := ctxutil.GetAuthRejection(request.Context())
	if message == "" {
		message = msgAuthRequired
	}
	respond.Error(writer, request, apperr.Unauthorized(message))
}

// RequireAuth blocks requests that are not authenticated.
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetIdentity(request.Context()) == nil {
			unauthenticated(writer, request)
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireRole blocks requests whose caller's role is not in roles.
//
// # Flow
//  1. Anonymous callers get 401 (authentication is checked first).
//  2. Authenticated callers outside the allowed set get 403.
func RequireRole(roles ...sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			identity := ctxutil.GetIdentity(request.Context())

			if identity == nil {
				unauthenticated(writer, request)
				return
			}

			if !identity.Role.In(roles...) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
