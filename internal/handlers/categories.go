package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/kalina-news/kalina/internal/auth"
	mw "github.com/kalina-news/kalina/internal/middleware"
	"github.com/kalina-news/kalina/internal/models"
)

type categoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (req *categoryRequest) Bind(r *http.Request) error {
	if req.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	p := pageFromRequest(r)

	categories, err := h.Store.Categories.List(r.Context(), p.PerPage, p.Offset())
	if err != nil {
		_ = render.Render(w, r, ErrInternal(err))
		return
	}

	total, err := h.Store.Categories.Count(r.Context())
	if err != nil {
		_ = render.Render(w, r, ErrInternal(err))
		return
	}

	render.JSON(w, r, listResponse(categories, total, p))
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "categoryID")
	if !ok {
		_ = render.Render(w, r, ErrInvalidRequest(errors.New("invalid category id")))
		return
	}

	category, err := h.Store.Categories.GetByID(r.Context(), id)
	if err != nil {
		_ = render.Render(w, r, errStore(err, ""))
		return
	}

	render.JSON(w, r, category)
}

// CreateCategory is admin only.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	ident, _ := mw.IdentityFrom(r.Context())
	if !auth.Allows(ident.Role, auth.ActionCategoryManage) {
		_ = render.Render(w, r, ErrForbidden())
		return
	}

	req := &categoryRequest{}
	if err := render.Bind(r, req); err != nil {
		_ = render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	category := &models.Category{Name: req.Name}
	if req.Description != nil {
		category.Description = sql.NullString{String: *req.Description, Valid: true}
	}

	if err := h.Store.Categories.Create(r.Context(), category); err != nil {
		_ = render.Render(w, r, errStore(err, "category name already exists"))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, category)
}

// UpdateCategory is admin only.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	ident, _ := mw.IdentityFrom(r.Context())
	if !auth.Allows(ident.Role, auth.ActionCategoryManage) {
		_ = render.Render(w, r, ErrForbidden())
		return
	}

	id, ok := idParam(r, "categoryID")
	if !ok {
		_ = render.Render(w, r, ErrInvalidRequest(errors.New("invalid category id")))
		return
	}

	req := &categoryRequest{}
	if err := render.Bind(r, req); err != nil {
		_ = render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	category, err := h.Store.Categories.GetByID(r.Context(), id)
	if err != nil {
		_ = render.Render(w, r, errStore(err, ""))
		return
	}

	category.Name = req.Name
	if req.Description != nil {
		category.Description = sql.NullString{String: *req.Description, Valid: *req.Description != ""}
	}

	if err := h.Store.Categories.Update(r.Context(), category); err != nil {
		_ = render.Render(w, r, errStore(err, "category name already exists"))
		return
	}

	render.JSON(w, r, category)
}

// DeleteCategory is admin only. Articles keep existing with their category
// cleared.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	ident, _ := mw.IdentityFrom(r.Context())
	if !auth.Allows(ident.Role, auth.ActionCategoryManage) {
		_ = render.Render(w, r, ErrForbidden())
		return
	}

	id, ok := idParam(r, "categoryID")
	if !ok {
		_ = render.Render(w, r, ErrInvalidRequest(errors.New("invalid category id")))
		return
	}

	if err := h.Store.Categories.Delete(r.Context(), id); err != nil {
		_ = render.Render(w, r, errStore(err, ""))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
