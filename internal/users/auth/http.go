// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/saas-starter/internal/platform/apperr"
	"github.com/taibuivan/saas-starter/internal/platform/constants"
	"github.com/taibuivan/saas-starter/internal/platform/ctxutil"
	"github.com/taibuivan/saas-starter/internal/platform/middleware"
	requestutil "github.com/taibuivan/saas-starter/internal/platform/request"
	"github.com/taibuivan/saas-starter/internal/platform/respond"
	"github.com/taibuivan/saas-starter/internal/platform/validate"
)

// # Definitions & Constructors

// CookieConfig controls the refresh-token cookie.
type CookieConfig struct {
	// Secure marks the cookie HTTPS-only; enabled in production.
	Secure bool

	// MaxAge matches the refresh-token lifetime.
	MaxAge time.Duration
}

// Handler implements authentication-related HTTP endpoints.
type Handler struct {
	authService *Service
	cookies     CookieConfig
	guards      []func(http.Handler) http.Handler
}

// NewHandler constructs a new [Handler]. guards wrap the credential endpoints
// (register, login, forgot-password, reset-password), typically a throttle.
func NewHandler(service *Service, cookies CookieConfig, guards ...func(http.Handler) http.Handler) *Handler {
	return &Handler{authService: service, cookies: cookies, guards: guards}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /register, /login, /refresh-token, /forgot-password, /reset-password, /logout
//   - GET  /verify-email/{token}
//   - GET  /profile (bearer required)
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Credential endpoints
	router.Group(func(r chi.Router) {
		r.Use(handler.guards...)
		r.Post("/register", handler.register)
		r.Post("/login", handler.login)
		r.Post("/forgot-password", handler.forgotPassword)
		r.Post("/reset-password", handler.resetPassword)
	})

	router.Post("/refresh-token", handler.refresh)
	router.Post("/logout", handler.logout)
	router.Get("/verify-email/{token}", handler.verifyEmail)

	router.With(middleware.RequireAuth).Get("/profile", handler.profile)

	return router
}

// # Request Payloads

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// # Response Payloads

type accountResponse struct {
	User *AccountView `json:"user"`
}

type loginResponse struct {
	User        *AccountView `json:"user"`
	AccessToken string       `json:"accessToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

/*
Register handles the creation of a new account.

POST /api/auth/register

Request:
  - Body: registerRequest (Email, Password, FirstName, LastName)

Response:
  - 201: {user}
  - 400: VALIDATION_ERROR or DUPLICATE_ACCOUNT
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Password(FieldPassword, input.Password).
		Required(FieldFirstName, input.FirstName).
		MaxLen(FieldFirstName, input.FirstName, NameMaxLength).
		Required(FieldLastName, input.LastName).
		MaxLen(FieldLastName, input.LastName, NameMaxLength)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, accountResponse{User: account})
}

/*
Login authenticates an account and establishes a session.

POST /api/auth/login

Response:
  - 200: {user, accessToken} plus the refresh-token cookie
  - 401: INVALID_CREDENTIALS
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Login(request.Context(), LoginInput{
		Email:     input.Email,
		Password:  input.Password,
		UserAgent: request.UserAgent(),
		IPAddress: requestutil.ClientIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, result.RefreshToken)

	respond.OK(writer, loginResponse{User: result.Account, AccessToken: result.AccessToken})
}

/*
Refresh rotates the refresh token and issues a new access token.

POST /api/auth/refresh-token

Description: The token is read from the cookie, falling back to the JSON body.

Response:
  - 200: {accessToken} plus the rotated cookie
  - 401: TOKEN_INVALID, or UNAUTHORIZED when no token was sent
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	refreshToken := handler.presentedRefreshToken(writer, request)
	if refreshToken == "" {
		respond.Error(writer, request, apperr.Unauthorized("Refresh token not provided"))
		return
	}

	pair, err := handler.authService.Refresh(request.Context(), refreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, pair.RefreshToken)

	respond.OK(writer, refreshResponse{AccessToken: pair.AccessToken})
}

/*
Logout terminates the current session.

POST /api/auth/logout

Response:
  - 200: Always; the cookie is cleared even if the session store fails.
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	if refreshToken := handler.presentedRefreshToken(writer, request); refreshToken != "" {
		if err := handler.authService.Logout(request.Context(), refreshToken); err != nil {
			ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "auth_logout_failed",
				slog.Any("error", err),
			)
		}
	}

	handler.clearRefreshCookie(writer)

	respond.Message(writer, "Logged out successfully")
}

/*
VerifyEmail confirms ownership of the account email.

GET /api/auth/verify-email/{token}

Response:
  - 200: Email verified
  - 401: TOKEN_INVALID
*/
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	token := requestutil.Param(request, FieldToken)

	if err := handler.authService.VerifyEmail(request.Context(), token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Email verified successfully")
}

/*
ForgotPassword initiates the password recovery flow.

POST /api/auth/forgot-password

Response:
  - 200: The same generic message whether or not the account exists
  - 400: Invalid email format
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	message, err := handler.authService.ForgotPassword(request.Context(), input.Email)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, message)
}

/*
ResetPassword completes the password recovery flow.

POST /api/auth/reset-password

Response:
  - 200: Password updated
  - 400: Weak password
  - 401: TOKEN_INVALID
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldToken, input.Token).
		Password(FieldPassword, input.Password)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Token, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Password reset successful")
}

/*
Profile returns the authenticated caller's account.

GET /api/auth/profile

Response:
  - 200: {user}
  - 401: UNAUTHORIZED
*/
func (handler *Handler) profile(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.authService.Profile(request.Context(), identity.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, accountResponse{User: account})
}

// # Cookies

// presentedRefreshToken reads the cookie first, then an optional JSON body.
func (handler *Handler) presentedRefreshToken(writer http.ResponseWriter, request *http.Request) string {
	if cookie, err := request.Cookie(constants.RefreshTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var body refreshRequest
	if request.Body == nil || request.ContentLength == 0 {
		return ""
	}
	if err := requestutil.DecodeJSON(writer, request, &body); err != nil {
		return ""
	}
	return body.RefreshToken
}

func (handler *Handler) setRefreshCookie(writer http.ResponseWriter, value string) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    value,
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   int(handler.cookies.MaxAge / time.Second),
		Secure:   handler.cookies.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (handler *Handler) clearRefreshCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		Secure:   handler.cookies.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
