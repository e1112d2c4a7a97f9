package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalina-news/kalina/internal/db"
	"github.com/kalina-news/kalina/internal/migrate"
	"github.com/kalina-news/kalina/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	conn, err := db.ConnectSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	m, err := migrate.New(conn)
	require.NoError(t, err)
	_, err = m.Up(context.Background())
	require.NoError(t, err)

	return New(conn)
}

func seedUser(t *testing.T, s *Store, username string, role models.Role) *models.User {
	t.Helper()

	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, s.Users.Create(context.Background(), u))
	return u
}

func TestUserCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "alice", models.RoleAuthor)
	assert.NotZero(t, u.ID)

	got, err := s.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, models.RoleAuthor, got.Role)
	assert.True(t, got.IsActive)
}

func TestUserGetByLogin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "bob", models.RoleReader)

	byEmail, err := s.Users.GetByLogin(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byName, err := s.Users.GetByLogin(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	_, err = s.Users.GetByLogin(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "carol", models.RoleReader)

	dup := &models.User{
		Username: "carol2",
		Email:    "carol@example.com",
		Password: "x",
		Role:     models.RoleReader,
		IsActive: true,
	}
	err := s.Users.Create(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserListPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seedUser(t, s, fmt.Sprintf("user%d", i), models.RoleReader)
	}

	page, err := s.Users.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	total, err := s.Users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
}

func TestUserUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "dave", models.RoleReader)
	u.Role = models.RoleEditor
	require.NoError(t, s.Users.Update(ctx, u))

	got, err := s.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, got.Role)

	missing := &models.User{ID: 9999, Email: "x@y.z", Role: models.RoleReader}
	assert.ErrorIs(t, s.Users.Update(ctx, missing), ErrNotFound)
}

func TestCategoryDuplicateName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Categories.Create(ctx, &models.Category{Name: "politics"}))
	err := s.Categories.Create(ctx, &models.Category{Name: "politics"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestTagCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tag := &models.Tag{Name: "breaking"}
	require.NoError(t, s.Tags.Create(ctx, tag))

	tag.Name = "breaking-news"
	require.NoError(t, s.Tags.Update(ctx, tag))

	got, err := s.Tags.GetByID(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, "breaking-news", got.Name)

	require.NoError(t, s.Tags.Delete(ctx, tag.ID))
	_, err = s.Tags.GetByID(ctx, tag.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
