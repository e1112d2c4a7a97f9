package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kalina-news/kalina/internal/models"
	"github.com/kalina-news/kalina/internal/token"
)

type ctxKey int

const identityKey ctxKey = iota

// Identity is the authenticated caller, as proven by their token.
type Identity struct {
	UserID int64
	Email  string
	Role   models.Role
}

// IdentityFrom pulls the caller's identity out of the request context.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// WithIdentity returns a context carrying the identity. Exported for tests.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "Unauthorized.", "error": msg})
}

// Authenticator verifies the Bearer token and loads the caller's identity
// into the request context. Requests without a valid token get a 401.
func Authenticator(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				unauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(auth, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				unauthorized(w, "authorization header is not a bearer token")
				return
			}

			tok := strings.TrimSpace(parts[1])
			if tok == "" {
				unauthorized(w, "empty bearer token")
				return
			}

			claims, err := token.Verify(tok, secret)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx := WithIdentity(r.Context(), Identity{
				UserID: claims.UserID(),
				Email:  claims.Email,
				Role:   claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
