package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"

	"github.com/kalina-news/kalina/internal/store"
	"github.com/kalina-news/kalina/internal/token"
)

type loginRequest struct {
	// Login accepts either the username or the email address. The email
	// field is kept as an alias for older clients.
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *loginRequest) Bind(r *http.Request) error {
	if req.Login == "" {
		req.Login = req.Email
	}
	if req.Login == "" || req.Password == "" {
		return errors.New("login and password are required")
	}
	return nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Login verifies credentials and issues a signed access token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	req := &loginRequest{}
	if err := render.Bind(r, req); err != nil {
		_ = render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	user, err := h.Store.Users.GetByLogin(r.Context(), req.Login)
	if errors.Is(err, store.ErrNotFound) {
		_ = render.Render(w, r, ErrUnauthorized("incorrect login or password"))
		return
	}
	if err != nil {
		_ = render.Render(w, r, ErrInternal(err))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		_ = render.Render(w, r, ErrUnauthorized("incorrect login or password"))
		return
	}

	if !user.IsActive {
		_ = render.Render(w, r, ErrForbidden())
		return
	}

	signed, expiresAt, err := token.Generate(user.ID, user.Email, user.Role, h.Cfg.SecretKey, h.Cfg.TokenTTL)
	if err != nil {
		_ = render.Render(w, r, ErrInternal(err))
		return
	}

	render.JSON(w, r, tokenResponse{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	})
}
