package db

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/kalina-news/kalina/internal/config"
)

func init() {
	// modernc's driver registers as "sqlite", which sqlx does not know
	// about out of the box.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Connect opens the configured database: Postgres when DATABASE_URL is set,
// a local SQLite file otherwise.
func Connect(cfg config.Config) (*sqlx.DB, error) {
	if cfg.DatabaseURL != "" {
		return connectPostgres(cfg)
	}
	return ConnectSQLite(cfg.SQLitePath)
}

func connectPostgres(cfg config.Config) (*sqlx.DB, error) {
	pgcfg, err := pgx.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: failed to parse DSN: %w", err)
	}

	// Fail fast on startup if PG is unreachable
	pgcfg.ConnectTimeout = 5 * time.Second

	sqlDB := stdlib.OpenDB(*pgcfg)

	// Wrap in sqlx for named queries & struct scanning
	db := sqlx.NewDb(sqlDB, "pgx")

	db.SetMaxOpenConns(cfg.DBMaxOpen)
	db.SetMaxIdleConns(cfg.DBMaxIdle)
	db.SetConnMaxLifetime(cfg.DBMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db: failed to connect to Postgres: %w", err)
	}

	var tmp int
	if err := db.QueryRow("SELECT 1").Scan(&tmp); err != nil {
		return nil, fmt.Errorf("db: health check failed: %w", err)
	}

	return db, nil
}

// ConnectSQLite opens a SQLite database at path with foreign keys enforced,
// which the comment cascade depends on.
func ConnectSQLite(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: failed to open SQLite at %s: %w", path, err)
	}

	// SQLite serializes writers; a single connection avoids lock errors.
	db.SetMaxOpenConns(1)

	return db, nil
}
