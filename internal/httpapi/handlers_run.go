package httpapi

import (
	"net/http"

	"github.com/PabloPavan/swiftsnip/internal/runner"
)

type RunHandler struct {
	Runner RunService
}

// Run Code
// @Summary Run unsaved JavaScript in the sandbox
// @Tags run
// @Accept json
// @Produce json
// @Param body body RunDTO true "code"
// @Success 200 {object} runner.Output
// @Failure 400 {string} string
// @Failure 429 {string} string
// @Failure 503 {string} string
// @Router /run [post]
func (h *RunHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.Runner == nil || !h.Runner.Enabled() {
		http.Error(w, "runner disabled", http.StatusServiceUnavailable)
		return
	}

	var req RunDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	language := req.Language
	if language == "" {
		language = "javascript"
	}

	out, err := h.Runner.Run(r.Context(), runner.RunInput{
		Code:     req.Code,
		Language: language,
		ClientIP: clientIP(r),
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
