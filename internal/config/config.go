package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config holds everything the server and CLI read from the environment.
type Config struct {
	Port      string
	SecretKey string
	TokenTTL  time.Duration
	LogLevel  string

	// DatabaseURL is a Postgres DSN. When empty the server falls back to
	// a local SQLite file at SQLitePath.
	DatabaseURL string
	SQLitePath  string

	// RedisAddr enables the article cache when non-empty.
	RedisAddr string

	DBMaxOpen     int
	DBMaxIdle     int
	DBMaxLifetime time.Duration
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Port:          getenv("PORT", "8080"),
		SecretKey:     os.Getenv("SECRET_KEY"),
		TokenTTL:      getenvDuration("TOKEN_TTL", 168*time.Hour),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SQLitePath:    getenv("SQLITE_PATH", "kalina.db"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		DBMaxOpen:     getenvInt("DB_MAX_OPEN", 25),
		DBMaxIdle:     getenvInt("DB_MAX_IDLE", 25),
		DBMaxLifetime: getenvDuration("DB_MAX_LIFETIME", 5*time.Minute),
	}
}

// ValidateForServer checks the settings the API server cannot run without.
func (c Config) ValidateForServer() error {
	if c.SecretKey == "" {
		return errors.New("SECRET_KEY is required")
	}
	return nil
}
