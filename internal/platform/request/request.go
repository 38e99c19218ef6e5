// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package requestutil provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/saas-starter/internal/platform/apperr"
	"github.com/taibuivan/saas-starter/internal/platform/ctxutil"
	"github.com/taibuivan/saas-starter/internal/platform/sec"
	"github.com/taibuivan/saas-starter/internal/platform/validate"
)

// maxBodyBytes caps JSON request bodies; auth payloads are a few hundred bytes.
const maxBodyBytes = 64 << 10

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - writer: http.ResponseWriter (needed by http.MaxBytesReader)
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target any) error {
	body := http.MaxBytesReader(writer, request.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Identity returns the authenticated caller, or nil for anonymous requests.
*/
func Identity(request *http.Request) *sec.Identity {
	return ctxutil.GetIdentity(request.Context())
}

/*
RequiredIdentity ensures the request is authenticated and returns the caller.

Returns:
  - *sec.Identity: The authenticated caller
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredIdentity(request *http.Request) (*sec.Identity, error) {
	identity := ctxutil.GetIdentity(request.Context())
	if identity == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return identity, nil
}

/*
ClientIP returns the caller address with any port stripped. RemoteAddr is
expected to have been rewritten by chi's RealIP middleware upstream.
*/
func ClientIP(request *http.Request) string {
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}

/*
BearerToken extracts the credential from an "Authorization: Bearer <token>"
header. ok is false when the header is absent; a present but malformed header
yields ok=true with an empty token.
*/
func BearerToken(request *http.Request) (token string, ok bool) {
	header := request.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	scheme, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}

	return strings.TrimSpace(value), true
}
