package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PabloPavan/swiftsnip/internal/identity"
	"github.com/PabloPavan/swiftsnip/internal/theme"
)

type ThemeStore interface {
	Get(ctx context.Context, owner string) (theme.Theme, error)
	Set(ctx context.Context, owner string, t theme.Theme) error
	Toggle(ctx context.Context, owner string) (theme.Theme, error)
	Subscribe(ctx context.Context, owner string) (<-chan theme.Theme, error)
}

type ThemeHandler struct {
	Store ThemeStore
	// KeepAlive is the interval of SSE comment pings; zero means 25s.
	KeepAlive time.Duration
}

type ThemeResponse struct {
	Theme theme.Theme `json:"theme"`
}

// Get Theme
// @Summary Current theme preference
// @Description Anonymous callers receive the system default.
// @Tags preferences
// @Produce json
// @Success 200 {object} ThemeResponse
// @Failure 503 {string} string
// @Router /preferences/theme [get]
func (h *ThemeHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.Store.Get(r.Context(), identity.From(r.Context()).UserID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: t})
}

// Put Theme
// @Summary Set theme preference
// @Tags preferences
// @Accept json
// @Produce json
// @Security SessionAuth
// @Security BearerAuth
// @Param body body ThemeDTO true "theme"
// @Param X-CSRF-Token header string false "CSRF token (required for SessionAuth)"
// @Success 200 {object} ThemeResponse
// @Failure 400 {string} string
// @Failure 401 {string} string
// @Router /preferences/theme [put]
func (h *ThemeHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req ThemeDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t := theme.Theme(req.Theme)
	if err := h.Store.Set(r.Context(), identity.From(r.Context()).UserID, t); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: t})
}

// Toggle Theme
// @Summary Flip between light and dark
// @Tags preferences
// @Produce json
// @Security SessionAuth
// @Security BearerAuth
// @Param X-CSRF-Token header string false "CSRF token (required for SessionAuth)"
// @Success 200 {object} ThemeResponse
// @Failure 401 {string} string
// @Router /preferences/theme/toggle [post]
func (h *ThemeHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	t, err := h.Store.Toggle(r.Context(), identity.From(r.Context()).UserID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: t})
}

// Events Theme
// @Summary Stream theme changes (server-sent events)
// @Description Sends the current value first, then one "theme" event per change.
// @Tags preferences
// @Produce text/event-stream
// @Security SessionAuth
// @Security BearerAuth
// @Success 200 {string} string
// @Failure 401 {string} string
// @Router /preferences/theme/events [get]
func (h *ThemeHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	owner := identity.From(ctx).UserID

	updates, err := h.Store.Subscribe(ctx, owner)
	if err != nil {
		writeAppError(w, err)
		return
	}
	current, err := h.Store.Get(ctx, owner)
	if err != nil {
		writeAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeThemeEvent(w, current)
	flusher.Flush()

	interval := h.KeepAlive
	if interval <= 0 {
		interval = 25 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-updates:
			if !ok {
				return
			}
			writeThemeEvent(w, t)
			flusher.Flush()
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func writeThemeEvent(w http.ResponseWriter, t theme.Theme) {
	_, _ = fmt.Fprintf(w, "event: theme\ndata: {\"theme\":%q}\n\n", t)
}
