package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/kalina-news/kalina/internal/cache"
	"github.com/kalina-news/kalina/internal/config"
	mw "github.com/kalina-news/kalina/internal/middleware"
	"github.com/kalina-news/kalina/internal/store"
	"github.com/kalina-news/kalina/internal/token"
)

type Handler struct {
	Store *store.Store
	Cache *cache.Cache
	Log   *zap.Logger
	Cfg   config.Config
}

func New(st *store.Store, c *cache.Cache, log *zap.Logger, cfg config.Config) *Handler {
	return &Handler{Store: st, Cache: c, Log: log, Cfg: cfg}
}

// Routes builds the full /api/v1 router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(mw.RequestLogger(h.Log))
	r.Use(chimw.Recoverer)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Post("/login", h.Login)
		r.Post("/users", h.Register)

		r.Get("/articles", h.ListArticles)
		r.Get("/articles/{articleID}", h.GetArticle)
		r.Get("/articles/{articleID}/comments", h.ListComments)
		r.Get("/categories", h.ListCategories)
		r.Get("/categories/{categoryID}", h.GetCategory)
		r.Get("/tags", h.ListTags)
		r.Get("/tags/{tagID}", h.GetTag)
		r.Get("/search", h.SearchArticles)

		// Authenticated
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticator(h.Cfg.SecretKey))

			r.Get("/users/me", h.Me)
			r.Put("/users/me", h.UpdateMe)
			r.Get("/users", h.ListUsers)
			r.Get("/users/{userID}", h.GetUser)

			r.Post("/articles", h.CreateArticle)
			r.Put("/articles/{articleID}", h.UpdateArticle)
			r.Delete("/articles/{articleID}", h.DeleteArticle)

			r.Post("/articles/{articleID}/comments", h.CreateComment)
			r.Delete("/comments/{commentID}", h.DeleteComment)

			r.Post("/categories", h.CreateCategory)
			r.Put("/categories/{categoryID}", h.UpdateCategory)
			r.Delete("/categories/{categoryID}", h.DeleteCategory)

			r.Post("/tags", h.CreateTag)
			r.Put("/tags/{tagID}", h.UpdateTag)
			r.Delete("/tags/{tagID}", h.DeleteTag)
		})
	})

	return r
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// optionalIdentity reads the caller's identity from a Bearer token on routes
// outside the Authenticator group. An absent or invalid token just means an
// anonymous caller.
func (h *Handler) optionalIdentity(r *http.Request) (mw.Identity, bool) {
	if id, ok := mw.IdentityFrom(r.Context()); ok {
		return id, true
	}

	auth := r.Header.Get("Authorization")
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return mw.Identity{}, false
	}

	claims, err := token.Verify(strings.TrimSpace(parts[1]), h.Cfg.SecretKey)
	if err != nil {
		return mw.Identity{}, false
	}

	return mw.Identity{UserID: claims.UserID(), Email: claims.Email, Role: claims.Role}, true
}
