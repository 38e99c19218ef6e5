// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/saas-starter/internal/platform/apperr"
	"github.com/taibuivan/saas-starter/internal/platform/constants"
	"github.com/taibuivan/saas-starter/internal/platform/mailer"
	"github.com/taibuivan/saas-starter/internal/platform/middleware"
)

type apiServer struct {
	*fixture
	router http.Handler
}

func newAPIServer(t *testing.T, guards ...func(http.Handler) http.Handler) *apiServer {
	t.Helper()

	f := newFixture(t)
	handler := NewHandler(f.service, CookieConfig{Secure: true, MaxAge: 7 * 24 * time.Hour}, guards...)

	router := chi.NewRouter()
	router.Use(middleware.Authenticate(f.tokens, f.service))
	router.Mount("/api/auth", handler.Routes())

	return &apiServer{fixture: f, router: router}
}

func (server *apiServer) do(t *testing.T, method, path, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	request := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	for _, fn := range mutate {
		fn(request)
	}

	recorder := httptest.NewRecorder()
	server.router.ServeHTTP(recorder, request)
	return recorder
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Details []struct {
		Field string `json:"field"`
	} `json:"details"`
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) envelope {
	t.Helper()

	var body envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body), recorder.Body.String())
	return body
}

func refreshCookie(t *testing.T, recorder *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == constants.RefreshTokenCookieName {
			return cookie
		}
	}
	t.Fatal("refresh cookie not set")
	return nil
}

func withCookie(value string) func(*http.Request) {
	return func(request *http.Request) {
		request.AddCookie(&http.Cookie{Name: constants.RefreshTokenCookieName, Value: value})
	}
}

func withBearer(token string) func(*http.Request) {
	return func(request *http.Request) {
		request.Header.Set("Authorization", "Bearer "+token)
	}
}

/*
TestHTTP_Scenario walks register, login, a failed login and a replayed
refresh token through the real router.
*/
func TestHTTP_Scenario(t *testing.T) {
	server := newAPIServer(t)

	// 1. Register
	recorder := server.do(t, http.MethodPost, "/api/auth/register",
		`{"email":"a@x.com","password":"Aa1!aaaa","firstName":"A","lastName":"B"}`)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var registered struct {
		User AccountView `json:"user"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, recorder).Data, &registered))
	assert.False(t, registered.User.EmailVerified)
	assert.NotContains(t, recorder.Body.String(), "passwordHash")

	// 2. Login
	recorder = server.do(t, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"Aa1!aaaa"}`)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var loggedIn loginResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, recorder).Data, &loggedIn))
	assert.NotEmpty(t, loggedIn.AccessToken)
	assert.False(t, loggedIn.User.EmailVerified)

	cookie := refreshCookie(t, recorder)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, constants.RefreshTokenCookiePath, cookie.Path)
	assert.Equal(t, 7*24*60*60, cookie.MaxAge)
	stolen := cookie.Value

	// 3. Wrong password
	recorder = server.do(t, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, apperr.CodeInvalidCredentials, decodeEnvelope(t, recorder).Code)

	// 4. Rotate, then replay the old token
	recorder = server.do(t, http.MethodPost, "/api/auth/refresh-token", "", withCookie(stolen))
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.NotEqual(t, stolen, refreshCookie(t, recorder).Value)

	recorder = server.do(t, http.MethodPost, "/api/auth/refresh-token", "", withCookie(stolen))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, apperr.CodeTokenInvalid, decodeEnvelope(t, recorder).Code)
}

func TestHTTP_LoginResponsesAreIdentical(t *testing.T) {
	server := newAPIServer(t)
	server.register(t, "a@x.com", strongPassword)

	wrongPassword := server.do(t, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"Wrong1!x"}`)
	unknownEmail := server.do(t, http.MethodPost, "/api/auth/login", `{"email":"b@x.com","password":"Wrong1!x"}`)

	assert.Equal(t, wrongPassword.Code, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestHTTP_RegisterValidation(t *testing.T) {
	server := newAPIServer(t)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"weak password", `{"email":"a@x.com","password":"aaaaaaaa","firstName":"A","lastName":"B"}`, FieldPassword},
		{"short password", `{"email":"a@x.com","password":"Aa1!","firstName":"A","lastName":"B"}`, FieldPassword},
		{"bad email", `{"email":"nope","password":"Aa1!aaaa","firstName":"A","lastName":"B"}`, FieldEmail},
		{"display name email", `{"email":"Alice <alice@x.com>","password":"Aa1!aaaa","firstName":"A","lastName":"B"}`, FieldEmail},
		{"password over bcrypt limit", `{"email":"a@x.com","password":"Aa1!` + strings.Repeat("a", 76) + `","firstName":"A","lastName":"B"}`, FieldPassword},
		{"missing name", `{"email":"a@x.com","password":"Aa1!aaaa","lastName":"B"}`, FieldFirstName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := server.do(t, http.MethodPost, "/api/auth/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)

			body := decodeEnvelope(t, recorder)
			assert.Equal(t, apperr.CodeValidation, body.Code)
			require.NotEmpty(t, body.Details)
			assert.Equal(t, tt.field, body.Details[0].Field)
		})
	}

	recorder := server.do(t, http.MethodPost, "/api/auth/register", `{not json`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHTTP_RegisterDuplicateIsBadRequest(t *testing.T) {
	server := newAPIServer(t)
	server.register(t, "a@x.com", strongPassword)

	recorder := server.do(t, http.MethodPost, "/api/auth/register",
		`{"email":"A@x.com","password":"Aa1!aaaa","firstName":"A","lastName":"B"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, apperr.CodeDuplicateAccount, decodeEnvelope(t, recorder).Code)
}

func TestHTTP_RefreshFromBodyAndMissing(t *testing.T) {
	server := newAPIServer(t)
	server.register(t, "a@x.com", strongPassword)
	login := server.do(t, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"Aa1!aaaa"}`)
	token := refreshCookie(t, login).Value

	recorder := server.do(t, http.MethodPost, "/api/auth/refresh-token", `{"refreshToken":"`+token+`"}`)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var refreshed refreshResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, recorder).Data, &refreshed))
	assert.NotEmpty(t, refreshed.AccessToken)

	recorder = server.do(t, http.MethodPost, "/api/auth/refresh-token", "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestHTTP_LogoutAlwaysSucceeds(t *testing.T) {
	server := newAPIServer(t)
	server.register(t, "a@x.com", strongPassword)
	login := server.do(t, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"Aa1!aaaa"}`)
	token := refreshCookie(t, login).Value

	for _, mutate := range []func(*http.Request){withCookie(token), withCookie(token), func(*http.Request) {}} {
		recorder := server.do(t, http.MethodPost, "/api/auth/logout", "", mutate)
		assert.Equal(t, http.StatusOK, recorder.Code)
		cleared := refreshCookie(t, recorder)
		assert.Empty(t, cleared.Value)
		assert.Negative(t, cleared.MaxAge)
	}

	recorder := server.do(t, http.MethodPost, "/api/auth/refresh-token", "", withCookie(token))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestHTTP_ExpiredBearerDoesNotBlockPublicRoutes sends a stale access token
alongside calls that must stay reachable once it has expired.
*/
func TestHTTP_ExpiredBearerDoesNotBlockPublicRoutes(t *testing.T) {
	server := newAPIServer(t)
	server.register(t, "a@x.com", strongPassword)

	login := server.do(t, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"Aa1!aaaa"}`)
	require.Equal(t, http.StatusOK, login.Code, login.Body.String())

	var loggedIn loginResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, login).Data, &loggedIn))
	stale := withBearer(loggedIn.AccessToken)
	cookie := refreshCookie(t, login).Value

	server.clock.Advance(time.Hour)

	profile := server.do(t, http.MethodGet, "/api/auth/profile", "", stale)
	assert.Equal(t, http.StatusUnauthorized, profile.Code)
	assert.Equal(t, "Invalid or expired token", decodeEnvelope(t, profile).Error)

	refreshed := server.do(t, http.MethodPost, "/api/auth/refresh-token", "", stale, withCookie(cookie))
	require.Equal(t, http.StatusOK, refreshed.Code, refreshed.Body.String())
	rotated := refreshCookie(t, refreshed).Value
	assert.NotEqual(t, cookie, rotated)

	relogin := server.do(t, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"Aa1!aaaa"}`, stale)
	assert.Equal(t, http.StatusOK, relogin.Code, relogin.Body.String())

	logout := server.do(t, http.MethodPost, "/api/auth/logout", "", stale, withCookie(rotated))
	assert.Equal(t, http.StatusOK, logout.Code, logout.Body.String())

	replay := server.do(t, http.MethodPost, "/api/auth/refresh-token", "", withCookie(rotated))
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
}

func TestHTTP_ForgotPasswordIsUniform(t *testing.T) {
	server := newAPIServer(t)
	server.register(t, "a@x.com", strongPassword)

	known := server.do(t, http.MethodPost, "/api/auth/forgot-password", `{"email":"a@x.com"}`)
	unknown := server.do(t, http.MethodPost, "/api/auth/forgot-password", `{"email":"ghost@x.com"}`)

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, known.Code, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())
	assert.Contains(t, known.Body.String(), ForgotPasswordMessage)
}

func TestHTTP_ResetPassword(t *testing.T) {
	server := newAPIServer(t)
	server.register(t, "a@x.com", strongPassword)
	server.do(t, http.MethodPost, "/api/auth/forgot-password", `{"email":"a@x.com"}`)
	token := tokenFromLink(t, server.notifier.lastMessage(t, mailer.KindPasswordReset))

	weak := server.do(t, http.MethodPost, "/api/auth/reset-password", `{"token":"`+token+`","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, weak.Code)

	ok := server.do(t, http.MethodPost, "/api/auth/reset-password", `{"token":"`+token+`","password":"Bb2@bbbb"}`)
	assert.Equal(t, http.StatusOK, ok.Code, ok.Body.String())

	replay := server.do(t, http.MethodPost, "/api/auth/reset-password", `{"token":"`+token+`","password":"Bb2@bbbb"}`)
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
	assert.Equal(t, apperr.CodeTokenInvalid, decodeEnvelope(t, replay).Code)
}

func TestHTTP_VerifyEmail(t *testing.T) {
	server := newAPIServer(t)
	server.register(t, "a@x.com", strongPassword)
	token := tokenFromLink(t, server.notifier.lastMessage(t, mailer.KindVerifyEmail))

	first := server.do(t, http.MethodGet, "/api/auth/verify-email/"+token, "")
	assert.Equal(t, http.StatusOK, first.Code)

	second := server.do(t, http.MethodGet, "/api/auth/verify-email/"+token, "")
	assert.Equal(t, http.StatusUnauthorized, second.Code)
	assert.Equal(t, apperr.CodeTokenInvalid, decodeEnvelope(t, second).Code)
}

func TestHTTP_Profile(t *testing.T) {
	server := newAPIServer(t)
	view := server.register(t, "a@x.com", strongPassword)

	anonymous := server.do(t, http.MethodGet, "/api/auth/profile", "")
	assert.Equal(t, http.StatusUnauthorized, anonymous.Code)

	forged := server.do(t, http.MethodGet, "/api/auth/profile", "", withBearer("forged"))
	assert.Equal(t, http.StatusUnauthorized, forged.Code)

	access, err := server.tokens.IssueAccessToken(view.ID)
	require.NoError(t, err)

	recorder := server.do(t, http.MethodGet, "/api/auth/profile", "", withBearer(access.Value))
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var profile struct {
		User AccountView `json:"user"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, recorder).Data, &profile))
	assert.Equal(t, view.ID, profile.User.ID)
}

func TestHTTP_GuardsWrapCredentialEndpointsOnly(t *testing.T) {
	guard := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.Header().Set("X-Guarded", "1")
			next.ServeHTTP(writer, request)
		})
	}
	server := newAPIServer(t, guard)

	assert.Equal(t, "1", server.do(t, http.MethodPost, "/api/auth/login", `{}`).Header().Get("X-Guarded"))
	assert.Equal(t, "1", server.do(t, http.MethodPost, "/api/auth/forgot-password", `{}`).Header().Get("X-Guarded"))
	assert.Empty(t, server.do(t, http.MethodPost, "/api/auth/logout", "").Header().Get("X-Guarded"))
}
