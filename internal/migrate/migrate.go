// Package migrate applies versioned SQL migrations embedded in the binary
// and records them in a schema_migrations bookkeeping table. Migration files
// follow the naming convention NNN_description.sql and live in a per-dialect
// directory.
package migrate

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

const bookkeepingSchema = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    description TEXT NOT NULL,
    applied_at TIMESTAMP NOT NULL
)`

var filenameRe = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// Migration is a single versioned schema change.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Status summarizes where the database stands relative to the embedded set.
type Status struct {
	Current int   `json:"current_version"`
	Pending []int `json:"pending_migrations"`
	Total   int   `json:"total_migrations"`
}

// Migrator applies embedded migrations to a database.
type Migrator struct {
	db         *sqlx.DB
	migrations []Migration
}

// New loads the embedded migrations matching the connection's dialect.
func New(db *sqlx.DB) (*Migrator, error) {
	sub, err := fs.Sub(migrationFS, "migrations/"+dialectFor(db))
	if err != nil {
		return nil, err
	}

	migrations, err := loadMigrations(sub)
	if err != nil {
		return nil, err
	}

	return &Migrator{db: db, migrations: migrations}, nil
}

func dialectFor(db *sqlx.DB) string {
	if db.DriverName() == "sqlite" {
		return "sqlite"
	}
	return "postgres"
}

func loadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}

	var migrations []Migration
	for _, e := range entries {
		m := filenameRe.FindStringSubmatch(e.Name())
		if m == nil {
			return nil, fmt.Errorf("migration file %q does not match NNN_description.sql", e.Name())
		}

		version, err := strconv.Atoi(m[1])
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration file %q has invalid version", e.Name())
		}

		sql, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %q: %w", e.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version:     version,
			Description: strings.ReplaceAll(m[2], "_", " "),
			SQL:         string(sql),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version == migrations[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d", migrations[i].Version)
		}
	}

	return migrations, nil
}

// Initialize creates the bookkeeping table if it does not exist.
func (m *Migrator) Initialize(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, bookkeepingSchema); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// CurrentVersion returns the highest applied migration version, 0 when the
// database has never been migrated.
func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	if err := m.Initialize(ctx); err != nil {
		return 0, err
	}

	var version int
	err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, nil
}

// Pending returns the versions not yet applied, in order.
func (m *Migrator) Pending(ctx context.Context) ([]int, error) {
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}

	var pending []int
	for _, mig := range m.migrations {
		if mig.Version > current {
			pending = append(pending, mig.Version)
		}
	}
	return pending, nil
}

// Status reports the current version alongside the pending set.
func (m *Migrator) Status(ctx context.Context) (Status, error) {
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return Status{}, err
	}

	pending, err := m.Pending(ctx)
	if err != nil {
		return Status{}, err
	}

	return Status{Current: current, Pending: pending, Total: len(m.migrations)}, nil
}

// Up applies all pending migrations in order, each in its own transaction.
// Returns the versions applied.
func (m *Migrator) Up(ctx context.Context) ([]int, error) {
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}

	var applied []int
	for _, mig := range m.migrations {
		if mig.Version <= current {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return applied, fmt.Errorf("migration %d (%s): %w", mig.Version, mig.Description, err)
		}
		applied = append(applied, mig.Version)
	}
	return applied, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(mig.SQL) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %q: %w", firstLine(stmt), err)
		}
	}

	q := m.db.Rebind("INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)")
	if _, err := tx.ExecContext(ctx, q, mig.Version, mig.Description, time.Now().UTC()); err != nil {
		return err
	}

	return tx.Commit()
}

// InitDirect is the non-canonical setup path: it executes the entire schema
// in a single transaction and stamps only the latest version. Use it on a
// fresh database when the step-by-step history is not needed.
func (m *Migrator) InitDirect(ctx context.Context) (int, error) {
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return 0, err
	}
	if current != 0 {
		return 0, fmt.Errorf("database already at version %d, refusing direct init", current)
	}
	if len(m.migrations) == 0 {
		return 0, fmt.Errorf("no migrations found")
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, mig := range m.migrations {
		for _, stmt := range splitStatements(mig.SQL) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return 0, fmt.Errorf("migration %d: %w", mig.Version, err)
			}
		}
	}

	latest := m.migrations[len(m.migrations)-1]
	q := m.db.Rebind("INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)")
	if _, err := tx.ExecContext(ctx, q, latest.Version, "direct schema init", time.Now().UTC()); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return latest.Version, nil
}

// splitStatements breaks a migration file into individual statements.
// pgx's extended protocol rejects multi-statement Exec calls. Migration SQL
// stays within the subset where a bare semicolon always terminates a
// statement.
func splitStatements(sql string) []string {
	var out []string
	for _, stmt := range strings.Split(sql, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
