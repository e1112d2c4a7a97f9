package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"

	"github.com/kalina-news/kalina/internal/auth"
	mw "github.com/kalina-news/kalina/internal/middleware"
	"github.com/kalina-news/kalina/internal/models"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func (req *registerRequest) Bind(r *http.Request) error {
	if req.Username == "" {
		// Registration with just an email is allowed; derive a username.
		req.Username = strings.SplitN(req.Email, "@", 2)[0]
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return errors.New("username, email and password are required")
	}
	if !strings.Contains(req.Email, "@") {
		return errors.New("email is malformed")
	}
	if req.Role != "" {
		if _, err := models.ParseRole(req.Role); err != nil {
			return err
		}
	}
	return nil
}

// Register creates a new account. Anyone may register as a reader; only an
// admin caller can assign another role.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	req := &registerRequest{}
	if err := render.Bind(r, req); err != nil {
		_ = render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	role := models.RoleReader
	if req.Role != "" && req.Role != string(models.RoleReader) {
		ident, ok := h.optionalIdentity(r)
		if !ok || !auth.Allows(ident.Role, auth.ActionUserManage) {
			_ = render.Render(w, r, ErrForbidden())
			return
		}
		role, _ = models.ParseRole(req.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		_ = render.Render(w, r, ErrInternal(err))
		return
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hash),
		FullName: sql.NullString{String: req.FullName, Valid: req.FullName != ""},
		Role:     role,
		IsActive: true,
	}

	if err := h.Store.Users.Create(r.Context(), user); err != nil {
		_ = render.Render(w, r, errStore(err, "username or email already registered"))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, user)
}

// Me returns the calling user's own record.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ident, _ := mw.IdentityFrom(r.Context())

	user, err := h.Store.Users.GetByID(r.Context(), ident.UserID)
	if err != nil {
		_ = render.Render(w, r, errStore(err, ""))
		return
	}

	render.JSON(w, r, user)
}

type updateUserRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
}

func (req *updateUserRequest) Bind(r *http.Request) error {
	if req.Email != nil && !strings.Contains(*req.Email, "@") {
		return errors.New("email is malformed")
	}
	if req.Password != nil && len(*req.Password) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	return nil
}

// UpdateMe merges the provided fields into the calling user's record.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ident, _ := mw.IdentityFrom(r.Context())

	req := &updateUserRequest{}
	if err := render.Bind(r, req); err != nil {
		_ = render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	user, err := h.Store.Users.GetByID(r.Context(), ident.UserID)
	if err != nil {
		_ = render.Render(w, r, errStore(err, ""))
		return
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.FullName != nil {
		user.FullName = sql.NullString{String: *req.FullName, Valid: *req.FullName != ""}
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			_ = render.Render(w, r, ErrInternal(err))
			return
		}
		user.Password = string(hash)
	}

	if err := h.Store.Users.Update(r.Context(), user); err != nil {
		_ = render.Render(w, r, errStore(err, "email already registered"))
		return
	}

	render.JSON(w, r, user)
}

// ListUsers is admin only.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ident, _ := mw.IdentityFrom(r.Context())
	if !auth.Allows(ident.Role, auth.ActionUserList) {
		_ = render.Render(w, r, ErrForbidden())
		return
	}

	p := pageFromRequest(r)

	users, err := h.Store.Users.List(r.Context(), p.PerPage, p.Offset())
	if err != nil {
		_ = render.Render(w, r, ErrInternal(err))
		return
	}

	total, err := h.Store.Users.Count(r.Context())
	if err != nil {
		_ = render.Render(w, r, ErrInternal(err))
		return
	}

	render.JSON(w, r, listResponse(users, total, p))
}

// GetUser is admin only.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	ident, _ := mw.IdentityFrom(r.Context())
	if !auth.Allows(ident.Role, auth.ActionUserList) {
		_ = render.Render(w, r, ErrForbidden())
		return
	}

	id, ok := idParam(r, "userID")
	if !ok {
		_ = render.Render(w, r, ErrInvalidRequest(errors.New("invalid user id")))
		return
	}

	user, err := h.Store.Users.GetByID(r.Context(), id)
	if err != nil {
		_ = render.Render(w, r, errStore(err, ""))
		return
	}

	render.JSON(w, r, user)
}
