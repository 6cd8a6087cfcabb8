package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/PabloPavan/swiftsnip/internal/auth"
	"github.com/PabloPavan/swiftsnip/internal/session"
	"github.com/PabloPavan/swiftsnip/internal/telemetry"
)

type AuthService interface {
	Login(ctx context.Context, input auth.LoginInput) (auth.LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
}

type AuthHandler struct {
	Service AuthService
	Cookie  session.CookieConfig
}

type LoginResponse struct {
	UserID               string `json:"user_id"`
	Email                string `json:"email"`
	Role                 string `json:"role"`
	SessionExpiresAt     string `json:"session_expires_at"` // RFC3339
	CSRFToken            string `json:"csrf_token"`
	AccessToken          string `json:"access_token,omitempty"`
	AccessTokenExpiresAt string `json:"access_token_expires_at,omitempty"`
}

// Login Auth
// @Summary Login
// @Description Starts a cookie session and issues a bearer access token.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginDTO true "credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {string} string
// @Failure 401 {string} string
// @Failure 429 {string} string
// @Failure 500 {string} string
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.Service.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		ClientIP: clientIP(r),
	})
	if err != nil {
		writeAppError(w, err)
		return
	}

	h.Cookie.Write(w, result.Session.ID, result.Session.ExpiresAt)

	resp := LoginResponse{
		UserID:           result.UserID,
		Email:            result.UserEmail,
		Role:             result.UserRole,
		SessionExpiresAt: result.Session.ExpiresAt.UTC().Format(time.RFC3339),
		CSRFToken:        result.Session.CSRFToken,
	}
	if result.Access != nil {
		resp.AccessToken = result.Access.Token
		resp.AccessTokenExpiresAt = result.Access.ExpiresAt.UTC().Format(time.RFC3339)
	}

	telemetry.LogInfo(r.Context(), "user login",
		telemetry.LogString("event", "user.login"),
		telemetry.LogString("user.id", result.UserID),
	)

	writeJSON(w, http.StatusOK, resp)
}

// Logout Auth
// @Summary Logout
// @Tags auth
// @Success 204
// @Failure 500 {string} string
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Logout(r.Context(), h.Cookie.Read(r)); err != nil {
		writeAppError(w, err)
		return
	}

	h.Cookie.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}
