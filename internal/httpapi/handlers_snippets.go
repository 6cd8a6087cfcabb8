package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/PabloPavan/swiftsnip/internal/runner"
	"github.com/PabloPavan/swiftsnip/internal/snippets"
)

type SnippetsService interface {
	Create(ctx context.Context, req snippets.CreateSnippetRequest) (*snippets.Snippet, error)
	GetByID(ctx context.Context, id string) (*snippets.Snippet, error)
	List(ctx context.Context, input snippets.ListInput) ([]*snippets.Snippet, error)
	Facets(ctx context.Context) (snippets.Facets, error)
	Update(ctx context.Context, id string, patch snippets.Patch) (*snippets.Snippet, error)
	SetFavorite(ctx context.Context, id string, favorite bool) (*snippets.Snippet, error)
	Delete(ctx context.Context, id string) error
}

type RunService interface {
	Enabled() bool
	Run(ctx context.Context, in runner.RunInput) (runner.Output, error)
}

type SnippetsHandler struct {
	Service SnippetsService
	Runner  RunService
}

// List Snippets
// @Summary List visible snippets
// @Description Search, tag, language and category filters combine with AND; tags and languages match any of the given values.
// @Tags snippets
// @Produce json
// @Param q query string false "search in title, description and tags"
// @Param tag query []string false "tag" collectionFormat(multi)
// @Param language query []string false "language" collectionFormat(multi)
// @Param category query string false "all, favorites or recent"
// @Param sort query string false "date, title or language"
// @Param limit query int false "limit"
// @Success 200 {array} snippets.Snippet
// @Failure 400 {string} string
// @Failure 503 {string} string
// @Router /snippets [get]
func (h *SnippetsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	input := snippets.ListInput{
		Search:    strings.TrimSpace(query.Get("q")),
		Tags:      splitValues(query["tag"]),
		Languages: splitValues(query["language"]),
		Category:  query.Get("category"),
		Sort:      query.Get("sort"),
	}
	if l := strings.TrimSpace(query.Get("limit")); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			input.Limit = v
		}
	}

	list, err := h.Service.List(r.Context(), input)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if list == nil {
		list = []*snippets.Snippet{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Facets Snippets
// @Summary Distinct tags and languages across visible snippets
// @Tags snippets
// @Produce json
// @Success 200 {object} snippets.Facets
// @Failure 503 {string} string
// @Router /snippets/facets [get]
func (h *SnippetsHandler) Facets(w http.ResponseWriter, r *http.Request) {
	facets, err := h.Service.Facets(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, facets)
}

// GetByID Snippet
// @Summary Get snippet by id
// @Tags snippets
// @Produce json
// @Param id path string true "snippet id"
// @Success 200 {object} snippets.Snippet
// @Failure 404 {string} string
// @Router /snippets/{id} [get]
func (h *SnippetsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.Service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// Raw Snippet
// @Summary Snippet code as plain text
// @Tags snippets
// @Produce plain
// @Param id path string true "snippet id"
// @Success 200 {string} string
// @Failure 404 {string} string
// @Router /snippets/{id}/raw [get]
func (h *SnippetsHandler) Raw(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.Service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write([]byte(snippet.Code))
}

// Create Snippet
// @Summary Create snippet
// @Tags snippets
// @Accept json
// @Produce json
// @Security SessionAuth
// @Security BearerAuth
// @Param body body SnippetCreateDTO true "snippet"
// @Param X-CSRF-Token header string false "CSRF token (required for SessionAuth)"
// @Success 201 {object} snippets.Snippet
// @Failure 400 {string} string
// @Failure 401 {string} string
// @Failure 409 {string} string
// @Router /snippets [post]
func (h *SnippetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req SnippetCreateDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snippet, err := h.Service.Create(r.Context(), req.Request())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snippet)
}

// Update Snippet
// @Summary Update snippet fields
// @Tags snippets
// @Accept json
// @Produce json
// @Security SessionAuth
// @Security BearerAuth
// @Param id path string true "snippet id"
// @Param body body SnippetPatchDTO true "changes"
// @Param X-CSRF-Token header string false "CSRF token (required for SessionAuth)"
// @Success 200 {object} snippets.Snippet
// @Failure 400 {string} string
// @Failure 401 {string} string
// @Failure 404 {string} string
// @Router /snippets/{id} [patch]
func (h *SnippetsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req SnippetPatchDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snippet, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), req.Patch())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// Favorite Snippet
// @Summary Mark or unmark a snippet as favorite
// @Tags snippets
// @Accept json
// @Produce json
// @Security SessionAuth
// @Security BearerAuth
// @Param id path string true "snippet id"
// @Param body body FavoriteDTO true "favorite flag"
// @Param X-CSRF-Token header string false "CSRF token (required for SessionAuth)"
// @Success 200 {object} snippets.Snippet
// @Failure 400 {string} string
// @Failure 404 {string} string
// @Router /snippets/{id}/favorite [put]
func (h *SnippetsHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	var req FavoriteDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snippet, err := h.Service.SetFavorite(r.Context(), chi.URLParam(r, "id"), *req.Favorite)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// Delete Snippet
// @Summary Delete snippet
// @Tags snippets
// @Security SessionAuth
// @Security BearerAuth
// @Param id path string true "snippet id"
// @Param X-CSRF-Token header string false "CSRF token (required for SessionAuth)"
// @Success 204
// @Failure 401 {string} string
// @Failure 404 {string} string
// @Router /snippets/{id} [delete]
func (h *SnippetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Run Snippet
// @Summary Run a stored JavaScript snippet in the sandbox
// @Tags run
// @Produce json
// @Param id path string true "snippet id"
// @Success 200 {object} runner.Output
// @Failure 400 {string} string
// @Failure 404 {string} string
// @Failure 429 {string} string
// @Failure 503 {string} string
// @Router /snippets/{id}/run [post]
func (h *SnippetsHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.Runner == nil || !h.Runner.Enabled() {
		http.Error(w, "runner disabled", http.StatusServiceUnavailable)
		return
	}

	snippet, err := h.Service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}

	out, err := h.Runner.Run(r.Context(), runner.RunInput{
		Code:     snippet.Code,
		Language: string(snippet.Language),
		ClientIP: clientIP(r),
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// splitValues accepts both repeated params and comma separated lists.
func splitValues(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
