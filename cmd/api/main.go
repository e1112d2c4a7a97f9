package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kalina-news/kalina/internal/cache"
	"github.com/kalina-news/kalina/internal/config"
	"github.com/kalina-news/kalina/internal/db"
	"github.com/kalina-news/kalina/internal/handlers"
	"github.com/kalina-news/kalina/internal/migrate"
	"github.com/kalina-news/kalina/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.FromEnv()
	if err := cfg.ValidateForServer(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	dbConn, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer dbConn.Close()

	// Warn on boot if the schema is behind the embedded migrations.
	if migrator, err := migrate.New(dbConn); err == nil {
		if pending, err := migrator.Pending(context.Background()); err == nil && len(pending) > 0 {
			logger.Warn("database schema is behind, run `kalina migrate`", zap.Ints("pending", pending))
		}
	}

	articleCache := cache.New(cfg.RedisAddr, logger)
	defer articleCache.Close()

	h := handlers.New(store.New(dbConn), articleCache, logger, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: h.Routes(),
	}

	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	return cfg.Build()
}
