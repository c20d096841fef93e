package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/AdamOzgary/blog/internal/apperr"
	"github.com/AdamOzgary/blog/internal/auth"
	"github.com/AdamOzgary/blog/internal/config"
	"github.com/AdamOzgary/blog/internal/content"
	"github.com/AdamOzgary/blog/internal/db"
	"github.com/AdamOzgary/blog/internal/handlers"
	"github.com/AdamOzgary/blog/internal/identity"
	"github.com/AdamOzgary/blog/internal/ledger"
	"github.com/AdamOzgary/blog/internal/log"
	"github.com/AdamOzgary/blog/internal/metrics"
	"github.com/AdamOzgary/blog/internal/taxonomy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewSugar(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Fatalw("Failed to create data directory", "error", err)
	}
	conn, err := db.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalw("Failed to open database", "path", cfg.Database.Path, "error", err)
	}
	defer conn.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx, conn); err != nil {
		logger.Fatalw("Failed to migrate database", "error", err)
	}

	m, metricsHandler, err := metrics.Setup("blog")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	ids := identity.NewService(conn, log.Component(logger, "identity"), identity.WithBcryptCost(cfg.Auth.BcryptCost))
	promoteAdmin(ctx, ids, cfg.Auth.AdminUsername, logger)

	httpLog := log.Component(logger, "http")
	h := handlers.New(handlers.Services{
		Identity: ids,
		Sessions: auth.NewManager(conn, cfg.Auth.SessionTTL, cfg.IsProd()),
		Taxonomy: taxonomy.NewService(conn, log.Component(logger, "taxonomy")),
		Content:  content.NewService(conn, log.Component(logger, "content")),
		Ledger:   ledger.NewService(conn, log.Component(logger, "ledger")),
	}, httpLog, m)

	router := h.Routes(handlers.NewMiddleware(httpLog, m), handlers.RouterOptions{
		CORSOrigins:    cfg.Security.CORSAllowedOrigins,
		RateLimitRPM:   cfg.Security.RateLimitRPM,
		RequestTimeout: cfg.Security.RequestTimeout,
		MetricsHandler: metricsHandler,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Security.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("Starting HTTP server", "addr", cfg.HTTPAddr, "env", cfg.Env, "db", cfg.Database.Path)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("Server startup failed", "error", err)
		}
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}
	}

	logger.Info("Server stopped")
}

// promoteAdmin grants admin rights to the configured user, if any. A missing
// user is only reported so a fresh install can register it first.
func promoteAdmin(ctx context.Context, ids *identity.Service, username string, logger *zap.SugaredLogger) {
	if username == "" {
		return
	}
	err := ids.SetAdmin(ctx, username)
	switch {
	case err == nil:
		logger.Infow("Admin user promoted", "username", username)
	case errors.Is(err, apperr.ErrUserNotFound):
		logger.Warnw("Configured admin user does not exist yet", "username", username)
	default:
		logger.Fatalw("Failed to promote admin user", "username", username, "error", err)
	}
}
