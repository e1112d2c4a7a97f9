package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/kalina-news/kalina/internal/auth"
	mw "github.com/kalina-news/kalina/internal/middleware"
	"github.com/kalina-news/kalina/internal/models"
)

type commentRequest struct {
	Body string `json:"body"`
}

func (req *commentRequest) Bind(r *http.Request) error {
	if req.Body == "" {
		return errors.New("body is required")
	}
	return nil
}

// ListComments returns the comments on one article, newest first.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	articleID, ok := idParam(r, "articleID")
	if !ok {
		_ = render.Render(w, r, ErrInvalidRequest(errors.New("invalid article id")))
		return
	}

	if _, err := h.Store.Articles.GetByID(r.Context(), articleID); err != nil {
		_ = render.Render(w, r, errStore(err, ""))
		return
	}

	p := pageFromRequest(r)

	comments, err := h.Store.Comments.ListByArticle(r.Context(), articleID, p.PerPage, p.Offset())
	if err != nil {
		_ = render.Render(w, r, ErrInternal(err))
		return
	}

	total, err := h.Store.Comments.CountByArticle(r.Context(), articleID)
	if err != nil {
		_ = render.Render(w, r, ErrInternal(err))
		return
	}

	render.JSON(w, r, listResponse(comments, total, p))
}

// CreateComment adds a comment to a published article. On a draft only the
// article's author, editors and admins may comment.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	ident, _ := mw.IdentityFrom(r.Context())

	articleID, ok := idParam(r, "articleID")
	if !ok {
		_ = render.Render(w, r, ErrInvalidRequest(errors.New("invalid article id")))
		return
	}

	req := &commentRequest{}
	if err := render.Bind(r, req); err != nil {
		_ = render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	article, err := h.Store.Articles.GetByID(r.Context(), articleID)
	if err != nil {
		_ = render.Render(w, r, errStore(err, ""))
		return
	}

	if article.IsPublished != models.StatusPublished &&
		!auth.CanViewDraft(ident.Role, ident.UserID, article.AuthorID) {
		_ = render.Render(w, r, ErrForbidden())
		return
	}

	comment := &models.Comment{
		ArticleID: articleID,
		AuthorID:  ident.UserID,
		Body:      req.Body,
	}
	if err := h.Store.Comments.Create(r.Context(), comment); err != nil {
		_ = render.Render(w, r, errStore(err, ""))
		return
	}
	comment.AuthorName = usernameOf(r, h, ident.UserID)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, comment)
}

// DeleteComment removes a comment. Comment owner, editors and admins only.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	ident, _ := mw.IdentityFrom(r.Context())

	id, ok := idParam(r, "commentID")
	if !ok {
		_ = render.Render(w, r, ErrInvalidRequest(errors.New("invalid comment id")))
		return
	}

	comment, err := h.Store.Comments.GetByID(r.Context(), id)
	if err != nil {
		_ = render.Render(w, r, errStore(err, ""))
		return
	}

	if !auth.CanDeleteComment(ident.Role, ident.UserID, comment.AuthorID) {
		_ = render.Render(w, r, ErrForbidden())
		return
	}

	if err := h.Store.Comments.Delete(r.Context(), id); err != nil {
		_ = render.Render(w, r, errStore(err, ""))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
