package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kalina-news/kalina/internal/config"
	"github.com/kalina-news/kalina/internal/db"
	"github.com/kalina-news/kalina/internal/migrate"
	"github.com/kalina-news/kalina/internal/models"
	"github.com/kalina-news/kalina/internal/store"
)

const testSecret = "test-secret"

type testServer struct {
	*httptest.Server
	store *store.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	conn, err := db.ConnectSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	m, err := migrate.New(conn)
	require.NoError(t, err)
	_, err = m.Up(context.Background())
	require.NoError(t, err)

	st := store.New(conn)
	cfg := config.Config{SecretKey: testSecret, TokenTTL: time.Hour}
	h := New(st, nil, zap.NewNop(), cfg)

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: st}
}

// seedAccount inserts a user directly so tests can mint accounts with any
// role, then logs in through the API to get a real token.
func (ts *testServer) seedAccount(t *testing.T, username string, role models.Role) (int64, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hash),
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, ts.store.Users.Create(context.Background(), u))

	status, body := ts.do(t, http.MethodPost, "/api/v1/login", "", map[string]any{
		"login":    username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, status, string(body))

	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(body, &tok))
	require.Equal(t, "bearer", tok.TokenType)
	return u.ID, tok.AccessToken
}

func (ts *testServer) do(t *testing.T, method, path, token string, payload any) (int, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func TestRegisterLoginMe(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodPost, "/api/v1/users", "", map[string]any{
		"email":    "ivan@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	var created models.User
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "ivan", created.Username, "username derived from email")
	assert.Equal(t, models.RoleReader, created.Role)
	assert.NotContains(t, string(body), "password", "hash never leaves the server")

	status, body = ts.do(t, http.MethodPost, "/api/v1/login", "", map[string]any{
		"email":    "ivan@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, status, string(body))

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(body, &tok))

	status, body = ts.do(t, http.MethodGet, "/api/v1/users/me", tok.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)

	var me models.User
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, "ivan@example.com", me.Email)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.seedAccount(t, "lena", models.RoleReader)

	status, _ := ts.do(t, http.MethodPost, "/api/v1/login", "", map[string]any{
		"login":    "lena",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = ts.do(t, http.MethodPost, "/api/v1/login", "", map[string]any{
		"login":    "nobody",
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	ts := newTestServer(t)

	payload := map[string]any{"email": "dup@example.com", "password": "secret123"}
	status, _ := ts.do(t, http.MethodPost, "/api/v1/users", "", payload)
	require.Equal(t, http.StatusCreated, status)

	status, _ = ts.do(t, http.MethodPost, "/api/v1/users", "", payload)
	assert.Equal(t, http.StatusConflict, status)
}

func TestRegisterWithRoleNeedsAdmin(t *testing.T) {
	ts := newTestServer(t)
	_, adminTok := ts.seedAccount(t, "root", models.RoleAdmin)

	payload := map[string]any{"email": "ed@example.com", "password": "secret123", "role": "editor"}

	status, _ := ts.do(t, http.MethodPost, "/api/v1/users", "", payload)
	assert.Equal(t, http.StatusForbidden, status, "anonymous caller cannot pick a role")

	status, body := ts.do(t, http.MethodPost, "/api/v1/users", adminTok, payload)
	require.Equal(t, http.StatusCreated, status, string(body))

	var created models.User
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, models.RoleEditor, created.Role)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	status, _ := ts.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = ts.do(t, http.MethodGet, "/api/v1/users/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestArticleCreateGetRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	authorID, authorTok := ts.seedAccount(t, "writer", models.RoleAuthor)

	status, body := ts.do(t, http.MethodPost, "/api/v1/articles", authorTok, map[string]any{
		"title":        "Harvest season begins",
		"body":         "Fields all over the region...",
		"is_published": 1,
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	var created models.Article
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, authorID, created.AuthorID)
	assert.Equal(t, "writer", created.AuthorName)

	status, body = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/articles/%d", created.ID), "", nil)
	require.Equal(t, http.StatusOK, status)

	var got models.Article
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, created.Body, got.Body)
}

func TestReaderCannotCreateArticle(t *testing.T) {
	ts := newTestServer(t)
	_, readerTok := ts.seedAccount(t, "reader", models.RoleReader)

	status, body := ts.do(t, http.MethodPost, "/api/v1/articles", readerTok, map[string]any{
		"title": "nope", "body": "nope",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.NotContains(t, string(body), "nope", "request payload must not be echoed back")
}

func TestDraftVisibility(t *testing.T) {
	ts := newTestServer(t)
	_, authorTok := ts.seedAccount(t, "writer", models.RoleAuthor)
	_, otherTok := ts.seedAccount(t, "rival", models.RoleAuthor)
	_, editorTok := ts.seedAccount(t, "chief", models.RoleEditor)

	status, body := ts.do(t, http.MethodPost, "/api/v1/articles", authorTok, map[string]any{
		"title": "Secret draft", "body": "unfinished", "is_published": 0,
	})
	require.Equal(t, http.StatusCreated, status)
	var draft models.Article
	require.NoError(t, json.Unmarshal(body, &draft))

	path := fmt.Sprintf("/api/v1/articles/%d", draft.ID)

	status, _ = ts.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, status, "anonymous caller gets 404, not 403")

	status, _ = ts.do(t, http.MethodGet, path, otherTok, nil)
	assert.Equal(t, http.StatusNotFound, status, "other authors get 404 too")

	status, _ = ts.do(t, http.MethodGet, path, authorTok, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = ts.do(t, http.MethodGet, path, editorTok, nil)
	assert.Equal(t, http.StatusOK, status)

	// Drafts stay out of the public listing.
	status, body = ts.do(t, http.MethodGet, "/api/v1/articles", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(body), "Secret draft")
}

func TestPublicationDateStampedOnFirstPublish(t *testing.T) {
	ts := newTestServer(t)
	_, authorTok := ts.seedAccount(t, "writer", models.RoleAuthor)

	status, body := ts.do(t, http.MethodPost, "/api/v1/articles", authorTok, map[string]any{
		"title": "Later", "body": "text", "is_published": 0,
	})
	require.Equal(t, http.StatusCreated, status)
	var draft models.Article
	require.NoError(t, json.Unmarshal(body, &draft))
	assert.False(t, draft.PublicationDate.Valid)

	path := fmt.Sprintf("/api/v1/articles/%d", draft.ID)
	status, body = ts.do(t, http.MethodPut, path, authorTok, map[string]any{"is_published": 1})
	require.Equal(t, http.StatusOK, status, string(body))

	var published models.Article
	require.NoError(t, json.Unmarshal(body, &published))
	require.True(t, published.PublicationDate.Valid)
	first := published.PublicationDate.Time

	// Unpublish and republish: the original date sticks.
	status, _ = ts.do(t, http.MethodPut, path, authorTok, map[string]any{"is_published": 0})
	require.Equal(t, http.StatusOK, status)
	status, body = ts.do(t, http.MethodPut, path, authorTok, map[string]any{"is_published": 1})
	require.Equal(t, http.StatusOK, status)

	var again models.Article
	require.NoError(t, json.Unmarshal(body, &again))
	require.True(t, again.PublicationDate.Valid)
	assert.True(t, again.PublicationDate.Time.Equal(first))
}

func TestUpdateArticleOwnership(t *testing.T) {
	ts := newTestServer(t)
	_, authorTok := ts.seedAccount(t, "writer", models.RoleAuthor)
	_, rivalTok := ts.seedAccount(t, "rival", models.RoleAuthor)
	_, editorTok := ts.seedAccount(t, "chief", models.RoleEditor)

	status, body := ts.do(t, http.MethodPost, "/api/v1/articles", authorTok, map[string]any{
		"title": "Mine", "body": "text", "is_published": 1,
	})
	require.Equal(t, http.StatusCreated, status)
	var a models.Article
	require.NoError(t, json.Unmarshal(body, &a))

	path := fmt.Sprintf("/api/v1/articles/%d", a.ID)

	status, _ = ts.do(t, http.MethodPut, path, rivalTok, map[string]any{"title": "Stolen"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = ts.do(t, http.MethodPut, path, editorTok, map[string]any{"title": "Edited"})
	require.Equal(t, http.StatusOK, status, string(body))

	var edited models.Article
	require.NoError(t, json.Unmarshal(body, &edited))
	assert.Equal(t, "Edited", edited.Title)
}

func TestDeleteArticleCascadesComments(t *testing.T) {
	ts := newTestServer(t)
	_, authorTok := ts.seedAccount(t, "writer", models.RoleAuthor)
	_, readerTok := ts.seedAccount(t, "reader", models.RoleReader)
	_, editorTok := ts.seedAccount(t, "chief", models.RoleEditor)

	status, body := ts.do(t, http.MethodPost, "/api/v1/articles", authorTok, map[string]any{
		"title": "Doomed", "body": "text", "is_published": 1,
	})
	require.Equal(t, http.StatusCreated, status)
	var a models.Article
	require.NoError(t, json.Unmarshal(body, &a))

	commentsPath := fmt.Sprintf("/api/v1/articles/%d/comments", a.ID)
	status, _ = ts.do(t, http.MethodPost, commentsPath, readerTok, map[string]any{"body": "nice read"})
	require.Equal(t, http.StatusCreated, status)

	// Authors cannot delete, editors can.
	articlePath := fmt.Sprintf("/api/v1/articles/%d", a.ID)
	status, _ = ts.do(t, http.MethodDelete, articlePath, authorTok, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = ts.do(t, http.MethodDelete, articlePath, editorTok, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, _ = ts.do(t, http.MethodGet, articlePath, "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(t, http.MethodGet, commentsPath, "", nil)
	assert.Equal(t, http.StatusNotFound, status, "comments of a deleted article are gone")
}

func TestCommentDeletePermissions(t *testing.T) {
	ts := newTestServer(t)
	_, authorTok := ts.seedAccount(t, "writer", models.RoleAuthor)
	_, ownerTok := ts.seedAccount(t, "owner", models.RoleReader)
	_, otherTok := ts.seedAccount(t, "other", models.RoleReader)
	_, editorTok := ts.seedAccount(t, "chief", models.RoleEditor)

	status, body := ts.do(t, http.MethodPost, "/api/v1/articles", authorTok, map[string]any{
		"title": "Discussed", "body": "text", "is_published": 1,
	})
	require.Equal(t, http.StatusCreated, status)
	var a models.Article
	require.NoError(t, json.Unmarshal(body, &a))

	post := func(tok string) int64 {
		status, body := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/articles/%d/comments", a.ID), tok, map[string]any{"body": "hm"})
		require.Equal(t, http.StatusCreated, status)
		var c models.Comment
		require.NoError(t, json.Unmarshal(body, &c))
		return c.ID
	}

	first := post(ownerTok)
	second := post(ownerTok)

	status, _ = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", first), otherTok, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", first), ownerTok, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", second), editorTok, nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestCategoryAdminOnly(t *testing.T) {
	ts := newTestServer(t)
	_, editorTok := ts.seedAccount(t, "chief", models.RoleEditor)
	_, adminTok := ts.seedAccount(t, "root", models.RoleAdmin)

	status, _ := ts.do(t, http.MethodPost, "/api/v1/categories", editorTok, map[string]any{"name": "politics"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body := ts.do(t, http.MethodPost, "/api/v1/categories", adminTok, map[string]any{"name": "politics"})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, _ = ts.do(t, http.MethodPost, "/api/v1/categories", adminTok, map[string]any{"name": "politics"})
	assert.Equal(t, http.StatusConflict, status)

	status, body = ts.do(t, http.MethodGet, "/api/v1/categories", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "politics")
}

func TestListArticlesPagination(t *testing.T) {
	ts := newTestServer(t)
	_, authorTok := ts.seedAccount(t, "writer", models.RoleAuthor)

	for i := 0; i < 5; i++ {
		status, _ := ts.do(t, http.MethodPost, "/api/v1/articles", authorTok, map[string]any{
			"title": fmt.Sprintf("Story %d", i), "body": "text", "is_published": 1,
		})
		require.Equal(t, http.StatusCreated, status)
	}

	status, body := ts.do(t, http.MethodGet, "/api/v1/articles?page=2&per_page=2", "", nil)
	require.Equal(t, http.StatusOK, status)

	var resp struct {
		Items   []models.Article `json:"items"`
		Total   int64            `json:"total"`
		Page    int              `json:"page"`
		PerPage int              `json:"per_page"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, int64(5), resp.Total)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 2, resp.PerPage)

	status, body = ts.do(t, http.MethodGet, "/api/v1/articles?per_page=500", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, maxPerPage, resp.PerPage, "per_page is clamped")
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t)
	_, authorTok := ts.seedAccount(t, "writer", models.RoleAuthor)

	status, _ := ts.do(t, http.MethodPost, "/api/v1/articles", authorTok, map[string]any{
		"title": "Harvest season begins", "body": "text", "is_published": 1,
	})
	require.Equal(t, http.StatusCreated, status)
	status, _ = ts.do(t, http.MethodPost, "/api/v1/articles", authorTok, map[string]any{
		"title": "Harvest draft", "body": "text", "is_published": 0,
	})
	require.Equal(t, http.StatusCreated, status)

	status, _ = ts.do(t, http.MethodGet, "/api/v1/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, status, "q is required")

	status, body := ts.do(t, http.MethodGet, "/api/v1/search?q=HARVEST", "", nil)
	require.Equal(t, http.StatusOK, status)

	var resp struct {
		Items []models.Article `json:"items"`
		Total int64            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, int64(1), resp.Total, "drafts never match")
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Harvest season begins", resp.Items[0].Title)
}

func TestUserListAdminOnly(t *testing.T) {
	ts := newTestServer(t)
	_, readerTok := ts.seedAccount(t, "reader", models.RoleReader)
	_, adminTok := ts.seedAccount(t, "root", models.RoleAdmin)

	status, _ := ts.do(t, http.MethodGet, "/api/v1/users", readerTok, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := ts.do(t, http.MethodGet, "/api/v1/users", adminTok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "reader@example.com")
}

func TestUpdateMe(t *testing.T) {
	ts := newTestServer(t)
	_, tok := ts.seedAccount(t, "mutable", models.RoleReader)

	status, _ := ts.do(t, http.MethodPut, "/api/v1/users/me", tok, map[string]any{"password": "short"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := ts.do(t, http.MethodPut, "/api/v1/users/me", tok, map[string]any{
		"full_name": "M. Utable",
		"password":  "newpassword",
	})
	require.Equal(t, http.StatusOK, status, string(body))

	var me models.User
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, "M. Utable", me.FullName.String)

	// The new password works for login.
	status, _ = ts.do(t, http.MethodPost, "/api/v1/login", "", map[string]any{
		"login":    "mutable",
		"password": "newpassword",
	})
	assert.Equal(t, http.StatusOK, status)
}
