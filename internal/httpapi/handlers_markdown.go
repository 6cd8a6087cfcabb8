package httpapi

import (
	"net/http"

	"github.com/PabloPavan/swiftsnip/internal/apperrors"
	"github.com/PabloPavan/swiftsnip/internal/markdown"
)

type MarkdownRenderer interface {
	Render(src string) (markdown.Document, error)
}

type MarkdownHandler struct {
	Renderer MarkdownRenderer
}

// Preview Markdown
// @Summary Render markdown to sanitised HTML and a display tree
// @Tags markdown
// @Accept json
// @Produce json
// @Param body body MarkdownDTO true "markdown source"
// @Success 200 {object} markdown.Document
// @Failure 400 {string} string
// @Router /markdown/preview [post]
func (h *MarkdownHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req MarkdownDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := h.Renderer.Render(req.Text)
	if err != nil {
		writeAppError(w, apperrors.Wrap(apperrors.KindInvalidInput, "failed to render markdown", err))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
