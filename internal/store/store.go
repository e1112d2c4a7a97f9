// Package store is the data access layer. Each entity gets its own store
// over a shared sqlx handle; queries use ? placeholders rebound per dialect.
package store

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	sqlite "modernc.org/sqlite"
)

var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate means a unique constraint was violated.
	ErrDuplicate = errors.New("duplicate")
	// ErrReference means a foreign key points at a missing row.
	ErrReference = errors.New("invalid reference")
)

type Store struct {
	Users      *UserStore
	Articles   *ArticleStore
	Categories *CategoryStore
	Tags       *TagStore
	Comments   *CommentStore

	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{
		Users:      &UserStore{db: db},
		Articles:   &ArticleStore{db: db},
		Categories: &CategoryStore{db: db},
		Tags:       &TagStore{db: db},
		Comments:   &CommentStore{db: db},
		db:         db,
	}
}

// DB exposes the underlying handle for migrations and health checks.
func (s *Store) DB() *sqlx.DB { return s.db }

// SQLite extended constraint codes.
const (
	sqliteConstraintUnique     = 2067
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintForeignKey = 787
)

func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqliteConstraintUnique || sqliteErr.Code() == sqliteConstraintPrimaryKey
	}

	return false
}

func isForeignKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqliteConstraintForeignKey
	}

	return false
}

// mapErr normalizes driver errors into the store's sentinel errors.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case isDuplicate(err):
		return ErrDuplicate
	case isForeignKey(err):
		return ErrReference
	}
	return err
}
