package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/kalina-news/kalina/internal/auth"
	"github.com/kalina-news/kalina/internal/cache"
	mw "github.com/kalina-news/kalina/internal/middleware"
	"github.com/kalina-news/kalina/internal/models"
	"github.com/kalina-news/kalina/internal/store"
)

type createArticleRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Body        string  `json:"body"`
	CategoryID  *int64  `json:"category_id"`
	IsPublished int     `json:"is_published"`
	TagIDs      []int64 `json:"tag_ids"`
}

func (req *createArticleRequest) Bind(r *http.Request) error {
	if req.Title == "" || req.Body == "" {
		return errors.New("title and body are required")
	}
	if req.IsPublished != models.StatusDraft && req.IsPublished != models.StatusPublished {
		return errors.New("is_published must be 0 or 1")
	}
	return nil
}

// CreateArticle persists a new article for the calling author.
func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	ident, _ := mw.IdentityFrom(r.Context())
	if !auth.Allows(ident.Role, auth.ActionArticleCreate) {
		_ = render.Render(w, r, ErrForbidden())
		return
	}

	req := &createArticleRequest{}
	if err := render.Bind(r, req); err != nil {
		_ = render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	article := &models.Article{
		Title:       req.Title,
		Body:        req.Body,
		AuthorID:    ident.UserID,
		IsPublished: req.IsPublished,
	}
	if req.Description != nil {
		article.Description = sql.NullString{String: *req.Description, Valid: true}
	}
	if req.CategoryID != nil {
		article.CategoryID = sql.NullInt64{Int64: *req.CategoryID, Valid: true}
	}
	if req.IsPublished == models.StatusPublished {
		article.PublicationDate = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	if err := h.Store.Articles.Create(r.Context(), article, req.TagIDs); err != nil {
		_ = render.Render(w, r, errStore(err, ""))
		return
	}
	article.AuthorName = usernameOf(r, h, ident.UserID)

	h.Cache.InvalidateLists(r.Context())

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, article)
}

// GetArticle returns one article. Drafts are only visible to their author,
// editors and admins; everyone else gets a 404 so drafts do not leak.
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "articleID")
	if !ok {
		_ = render.Render(w, r, ErrInvalidRequest(errors.New("invalid article id")))
		return
	}

	var cached models.Article
	if h.Cache.GetJSON(r.Context(), cache.ArticleKey(id), &cached) {
		render.JSON(w, r, cached)
		return
	}

	article, err := h.Store.Articles.GetByID(r.Context(), id)
	if err != nil {
		_ = render.Render(w, r, errStore(err, ""))
		return
	}

	if article.IsPublished != models.StatusPublished {
		ident, ok := h.optionalIdentity(r)
		if !ok || !auth.CanViewDraft(ident.Role, ident.UserID, article.AuthorID) {
			_ = render.Render(w, r, ErrNotFound)
			return
		}
	} else {
		h.Cache.SetJSON(r.Context(), cache.ArticleKey(id), article)
	}

	render.JSON(w, r, article)
}

// ListArticles returns published articles by default. ?status=draft limits
// the listing to the caller's own drafts, or all drafts for editors/admins.
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	p := pageFromRequest(r)

	published := models.StatusPublished
	filter := store.ArticleFilter{Published: &published, Limit: p.PerPage, Offset: p.Offset()}

	wantDrafts := r.URL.Query().Get("status") == "draft"
	if wantDrafts {
		ident, ok := h.optionalIdentity(r)
		if !ok {
			_ = render.Render(w, r, ErrUnauthorized("authentication required to list drafts"))
			return
		}
		draft := models.StatusDraft
		filter.Published = &draft
		if ident.Role != models.RoleEditor && ident.Role != models.RoleAdmin {
			authorID := ident.UserID
			filter.AuthorID = &authorID
		}
	}

	cacheable := !wantDrafts
	if cacheable {
		var cached ListResponse
		if h.Cache.GetJSON(r.Context(), cache.ListKey(p.Page, p.PerPage), &cached) {
			render.JSON(w, r, cached)
			return
		}
	}

	articles, total, err := h.Store.Articles.List(r.Context(), filter)
	if err != nil {
		_ = render.Render(w, r, ErrInternal(err))
		return
	}

	resp := listResponse(articles, total, p)
	if cacheable {
		h.Cache.SetJSON(r.Context(), cache.ListKey(p.Page, p.PerPage), resp)
	}
	render.JSON(w, r, resp)
}

type updateArticleRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Body        *string `json:"body"`
	CategoryID  *int64  `json:"category_id"`
	IsPublished *int    `json:"is_published"`
	TagIDs      []int64 `json:"tag_ids"`
}

func (req *updateArticleRequest) Bind(r *http.Request) error {
	if req.Title != nil && *req.Title == "" {
		return errors.New("title cannot be empty")
	}
	if req.Body != nil && *req.Body == "" {
		return errors.New("body cannot be empty")
	}
	if req.IsPublished != nil && *req.IsPublished != models.StatusDraft && *req.IsPublished != models.StatusPublished {
		return errors.New("is_published must be 0 or 1")
	}
	return nil
}

// UpdateArticle merges the provided fields. Owners, editors and admins only.
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	ident, _ := mw.IdentityFrom(r.Context())

	id, ok := idParam(r, "articleID")
	if !ok {
		_ = render.Render(w, r, ErrInvalidRequest(errors.New("invalid article id")))
		return
	}

	req := &updateArticleRequest{}
	if err := render.Bind(r, req); err != nil {
		_ = render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	article, err := h.Store.Articles.GetByID(r.Context(), id)
	if err != nil {
		_ = render.Render(w, r, errStore(err, ""))
		return
	}

	if !auth.CanModifyArticle(ident.Role, ident.UserID, article.AuthorID) {
		_ = render.Render(w, r, ErrForbidden())
		return
	}

	if req.Title != nil {
		article.Title = *req.Title
	}
	if req.Description != nil {
		article.Description = sql.NullString{String: *req.Description, Valid: *req.Description != ""}
	}
	if req.Body != nil {
		article.Body = *req.Body
	}
	if req.CategoryID != nil {
		article.CategoryID = sql.NullInt64{Int64: *req.CategoryID, Valid: *req.CategoryID != 0}
	}
	if req.IsPublished != nil && *req.IsPublished != article.IsPublished {
		article.IsPublished = *req.IsPublished
		// publication_date is stamped on first publish and kept thereafter
		if *req.IsPublished == models.StatusPublished && !article.PublicationDate.Valid {
			article.PublicationDate = sql.NullTime{Time: time.Now().UTC(), Valid: true}
		}
	}

	if err := h.Store.Articles.Update(r.Context(), article, req.TagIDs); err != nil {
		_ = render.Render(w, r, errStore(err, ""))
		return
	}

	h.Cache.Invalidate(r.Context(), cache.ArticleKey(id))
	h.Cache.InvalidateLists(r.Context())

	render.JSON(w, r, article)
}

// DeleteArticle removes an article and, through the cascade, its comments.
// Editors and admins only.
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	ident, _ := mw.IdentityFrom(r.Context())
	if !auth.Allows(ident.Role, auth.ActionArticleDelete) {
		_ = render.Render(w, r, ErrForbidden())
		return
	}

	id, ok := idParam(r, "articleID")
	if !ok {
		_ = render.Render(w, r, ErrInvalidRequest(errors.New("invalid article id")))
		return
	}

	if err := h.Store.Articles.Delete(r.Context(), id); err != nil {
		_ = render.Render(w, r, errStore(err, ""))
		return
	}

	h.Cache.Invalidate(r.Context(), cache.ArticleKey(id))
	h.Cache.InvalidateLists(r.Context())

	w.WriteHeader(http.StatusNoContent)
}

// usernameOf resolves a username for response bodies; empty on lookup
// failure rather than failing the request.
func usernameOf(r *http.Request, h *Handler, userID int64) string {
	u, err := h.Store.Users.GetByID(r.Context(), userID)
	if err != nil {
		return ""
	}
	return u.Username
}
