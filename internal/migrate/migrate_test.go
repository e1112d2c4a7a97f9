package migrate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalina-news/kalina/internal/db"
)

func testDB(t *testing.T) *Migrator {
	t.Helper()

	conn, err := db.ConnectSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	m, err := New(conn)
	require.NoError(t, err)
	return m
}

func TestUpAppliesAllPending(t *testing.T) {
	m := testDB(t)
	ctx := context.Background()

	current, err := m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, current)

	applied, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, applied)

	st, err := m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Current)
	assert.Empty(t, st.Pending)
	assert.Equal(t, 2, st.Total)
}

func TestUpIsIdempotent(t *testing.T) {
	m := testDB(t)
	ctx := context.Background()

	_, err := m.Up(ctx)
	require.NoError(t, err)

	applied, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestInitDirectStampsLatest(t *testing.T) {
	m := testDB(t)
	ctx := context.Background()

	version, err := m.InitDirect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	current, err := m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, current)

	pending, err := m.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestInitDirectRefusesMigratedDB(t *testing.T) {
	m := testDB(t)
	ctx := context.Background()

	_, err := m.Up(ctx)
	require.NoError(t, err)

	_, err = m.InitDirect(ctx)
	assert.Error(t, err)
}

func TestCreateFiles(t *testing.T) {
	dir := t.TempDir()

	paths, err := CreateFiles(dir, "Add Something New")
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "sqlite", "001_add_something_new.sql"), paths[0])
	assert.Equal(t, filepath.Join(dir, "postgres", "001_add_something_new.sql"), paths[1])

	// Next one gets the next number.
	paths, err = CreateFiles(dir, "another")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sqlite", "002_another.sql"), paths[0])
}
