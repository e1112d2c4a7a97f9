package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
)

// SearchArticles matches ?q as a case-insensitive substring of the title,
// body, or author username of published articles.
func (h *Handler) SearchArticles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		_ = render.Render(w, r, ErrInvalidRequest(errors.New("query parameter q is required")))
		return
	}

	p := pageFromRequest(r)

	articles, total, err := h.Store.Articles.Search(r.Context(), query, p.PerPage, p.Offset())
	if err != nil {
		_ = render.Render(w, r, ErrInternal(err))
		return
	}

	render.JSON(w, r, listResponse(articles, total, p))
}
