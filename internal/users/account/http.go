// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account provides the HTTP delivery layer for account administration.

# Security

Every endpoint requires an authenticated caller. Listing and deletion are
further restricted to ADMIN and SUPER_ADMIN by [middleware.RequireRole].
*/
package account

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/saas-starter/internal/platform/middleware"
	requestutil "github.com/taibuivan/saas-starter/internal/platform/request"
	"github.com/taibuivan/saas-starter/internal/platform/respond"
	"github.com/taibuivan/saas-starter/internal/platform/sec"
	"github.com/taibuivan/saas-starter/internal/platform/validate"
	"github.com/taibuivan/saas-starter/internal/users/auth"
	"github.com/taibuivan/saas-starter/pkg/pagination"
	"github.com/taibuivan/saas-starter/pkg/query"
	"github.com/taibuivan/saas-starter/pkg/slice"
)

// Query and path parameter names.
const (
	paramID   = "id"
	paramRole = "role"
)

// Handler implements the HTTP layer for account administration.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] configured with the account endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	adminOnly := middleware.RequireRole(sec.AdminRoles...)

	router.With(adminOnly).Get("/", handler.listUsers)
	router.Get("/{id}", handler.getUser)
	router.Put("/{id}", handler.updateUser)
	router.With(adminOnly).Delete("/{id}", handler.deleteUser)

	return router
}

type accountResponse struct {
	User *auth.AccountView `json:"user"`
}

/*
GET /api/users.

Description: Lists accounts, newest first.

Request:
  - query: page, limit, role (comma-separated)

Response:
  - 200: [AccountView] with pagination meta
  - 400: Unknown role
  - 403: Caller is not an administrator
*/
func (handler *Handler) listUsers(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	values := request.URL.Query()
	roleNames := query.StringSlice(values.Get(paramRole))

	v := &validate.Validator{}
	for _, name := range roleNames {
		v.OneOf(paramRole, name, string(sec.RoleUser), string(sec.RoleAdmin), string(sec.RoleSuperAdmin))
	}
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	filter := ListFilter{
		Params: pagination.FromRequest(request),
		Roles:  slice.Map(roleNames, func(name string) sec.UserRole { return sec.UserRole(name) }),
	}

	accounts, total, err := handler.accountService.List(request.Context(), identity, filter)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, accounts, pagination.NewMeta(filter.Page, filter.Limit, total))
}

/*
GET /api/users/{id}.

Response:
  - 200: {user}
  - 403: Not the owner and not an administrator
  - 404: Unknown account
*/
func (handler *Handler) getUser(writer http.ResponseWriter, request *http.Request) {
	identity, id, ok := handler.target(writer, request)
	if !ok {
		return
	}

	account, err := handler.accountService.Get(request.Context(), identity, id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, accountResponse{User: account})
}

// updateRequest defines the expected JSON payload; omitted fields are left unchanged.
type updateRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
}

/*
PUT /api/users/{id}.

Description: Applies partial updates to an account profile.

Response:
  - 200: {user}
  - 400: Validation failure or DUPLICATE_ACCOUNT
  - 403: Not the owner and not an administrator
  - 404: Unknown account
*/
func (handler *Handler) updateUser(writer http.ResponseWriter, request *http.Request) {
	identity, id, ok := handler.target(writer, request)
	if !ok {
		return
	}

	var input updateRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	if input.FirstName != nil {
		v.Required(auth.FieldFirstName, *input.FirstName).MaxLen(auth.FieldFirstName, *input.FirstName, auth.NameMaxLength)
	}
	if input.LastName != nil {
		v.Required(auth.FieldLastName, *input.LastName).MaxLen(auth.FieldLastName, *input.LastName, auth.NameMaxLength)
	}
	if input.Email != nil {
		v.Required(auth.FieldEmail, *input.Email).Email(auth.FieldEmail, *input.Email)
	}

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.Update(request.Context(), identity, id, UpdateInput{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, accountResponse{User: account})
}

/*
DELETE /api/users/{id}.

Response:
  - 200: Deleted
  - 400: Attempt to delete the caller's own account
  - 404: Unknown account
*/
func (handler *Handler) deleteUser(writer http.ResponseWriter, request *http.Request) {
	identity, id, ok := handler.target(writer, request)
	if !ok {
		return
	}

	if err := handler.accountService.Delete(request.Context(), identity, id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "User deleted successfully")
}

// target resolves the caller and validates the {id} path parameter.
func (handler *Handler) target(writer http.ResponseWriter, request *http.Request) (*sec.Identity, string, bool) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return nil, "", false
	}

	// Ownership compares canonical lowercase ids.
	id := strings.ToLower(requestutil.Param(request, paramID))

	v := &validate.Validator{}
	if err := v.UUID(paramID, id).Err(); err != nil {
		respond.Error(writer, request, err)
		return nil, "", false
	}

	return identity, id, true
}
