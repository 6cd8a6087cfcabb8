package httpapi

import (
	"context"
	"net/http"

	"github.com/PabloPavan/swiftsnip/internal/session"
	"github.com/PabloPavan/swiftsnip/internal/telemetry"
	"github.com/PabloPavan/swiftsnip/internal/users"
)

type UsersService interface {
	Create(ctx context.Context, req users.CreateUserRequest) (*users.User, error)
	Me(ctx context.Context) (*users.User, error)
	UpdateSelf(ctx context.Context, input users.UpdateUserInput) error
	DeleteSelf(ctx context.Context) error
}

type UsersHandler struct {
	Service UsersService
	Cookie  session.CookieConfig
}

// Create User
// @Summary Sign up
// @Tags users
// @Accept json
// @Produce json
// @Param body body SignupDTO true "user"
// @Success 201 {object} users.UserResponse
// @Failure 400 {string} string
// @Failure 409 {string} string
// @Failure 500 {string} string
// @Router /users [post]
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req SignupDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u, err := h.Service.Create(r.Context(), users.CreateUserRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}

	telemetry.LogInfo(r.Context(), "user created",
		telemetry.LogString("event", "user.created"),
		telemetry.LogString("user.id", u.ID),
	)

	writeJSON(w, http.StatusCreated, u.Response())
}

// Me User
// @Summary Current user
// @Tags users
// @Produce json
// @Security SessionAuth
// @Security BearerAuth
// @Success 200 {object} users.UserResponse
// @Failure 401 {string} string
// @Failure 404 {string} string
// @Router /users/me [get]
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Service.Me(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Response())
}

// UpdateMe User
// @Summary Update current user
// @Tags users
// @Accept json
// @Produce json
// @Security SessionAuth
// @Security BearerAuth
// @Param body body UserUpdateDTO true "changes"
// @Param X-CSRF-Token header string false "CSRF token (required for SessionAuth)"
// @Success 200 {object} users.UserResponse
// @Failure 400 {string} string
// @Failure 401 {string} string
// @Failure 409 {string} string
// @Router /users/me [patch]
func (h *UsersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UserUpdateDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.UpdateSelf(r.Context(), users.UpdateUserInput{
		Email:    req.Email,
		Password: req.Password,
	}); err != nil {
		writeAppError(w, err)
		return
	}

	u, err := h.Service.Me(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Response())
}

// DeleteMe User
// @Summary Delete current user and their snippets
// @Tags users
// @Security SessionAuth
// @Security BearerAuth
// @Param X-CSRF-Token header string false "CSRF token (required for SessionAuth)"
// @Success 204
// @Failure 401 {string} string
// @Failure 404 {string} string
// @Router /users/me [delete]
func (h *UsersHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteSelf(r.Context()); err != nil {
		writeAppError(w, err)
		return
	}

	h.Cookie.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}
