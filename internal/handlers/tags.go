package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/kalina-news/kalina/internal/auth"
	mw "github.com/kalina-news/kalina/internal/middleware"
	"github.com/kalina-news/kalina/internal/models"
)

type tagRequest struct {
	Name string `json:"name"`
}

func (req *tagRequest) Bind(r *http.Request) error {
	if req.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	p := pageFromRequest(r)

	tags, err := h.Store.Tags.List(r.Context(), p.PerPage, p.Offset())
	if err != nil {
		_ = render.Render(w, r, ErrInternal(err))
		return
	}

	total, err := h.Store.Tags.Count(r.Context())
	if err != nil {
		_ = render.Render(w, r, ErrInternal(err))
		return
	}

	render.JSON(w, r, listResponse(tags, total, p))
}

func (h *Handler) GetTag(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "tagID")
	if !ok {
		_ = render.Render(w, r, ErrInvalidRequest(errors.New("invalid tag id")))
		return
	}

	tag, err := h.Store.Tags.GetByID(r.Context(), id)
	if err != nil {
		_ = render.Render(w, r, errStore(err, ""))
		return
	}

	render.JSON(w, r, tag)
}

// CreateTag is admin only.
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	ident, _ := mw.IdentityFrom(r.Context())
	if !auth.Allows(ident.Role, auth.ActionTagManage) {
		_ = render.Render(w, r, ErrForbidden())
		return
	}

	req := &tagRequest{}
	if err := render.Bind(r, req); err != nil {
		_ = render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	tag := &models.Tag{Name: req.Name}
	if err := h.Store.Tags.Create(r.Context(), tag); err != nil {
		_ = render.Render(w, r, errStore(err, "tag name already exists"))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, tag)
}

// UpdateTag is admin only.
func (h *Handler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	ident, _ := mw.IdentityFrom(r.Context())
	if !auth.Allows(ident.Role, auth.ActionTagManage) {
		_ = render.Render(w, r, ErrForbidden())
		return
	}

	id, ok := idParam(r, "tagID")
	if !ok {
		_ = render.Render(w, r, ErrInvalidRequest(errors.New("invalid tag id")))
		return
	}

	req := &tagRequest{}
	if err := render.Bind(r, req); err != nil {
		_ = render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	tag, err := h.Store.Tags.GetByID(r.Context(), id)
	if err != nil {
		_ = render.Render(w, r, errStore(err, ""))
		return
	}

	tag.Name = req.Name
	if err := h.Store.Tags.Update(r.Context(), tag); err != nil {
		_ = render.Render(w, r, errStore(err, "tag name already exists"))
		return
	}

	render.JSON(w, r, tag)
}

// DeleteTag is admin only. Article links go with it via the cascade.
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	ident, _ := mw.IdentityFrom(r.Context())
	if !auth.Allows(ident.Role, auth.ActionTagManage) {
		_ = render.Render(w, r, ErrForbidden())
		return
	}

	id, ok := idParam(r, "tagID")
	if !ok {
		_ = render.Render(w, r, ErrInvalidRequest(errors.New("invalid tag id")))
		return
	}

	if err := h.Store.Tags.Delete(r.Context(), id); err != nil {
		_ = render.Render(w, r, errStore(err, ""))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
