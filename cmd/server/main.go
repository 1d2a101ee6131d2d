package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmeza44/team-vault-sub000/internal/api"
	"github.com/jmeza44/team-vault-sub000/internal/audit"
	"github.com/jmeza44/team-vault-sub000/internal/config"
	"github.com/jmeza44/team-vault-sub000/internal/crypto"
	"github.com/jmeza44/team-vault-sub000/internal/database"
	"github.com/jmeza44/team-vault-sub000/internal/team"
	"github.com/jmeza44/team-vault-sub000/internal/user"
	"github.com/jmeza44/team-vault-sub000/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	cipher, err := crypto.New(cfg.MasterKey)
	if err != nil {
		slog.Error("failed to initialize cipher", "error", err)
		os.Exit(1)
	}

	userRepo := user.NewRepository(db.Pool())
	teamRepo := team.NewRepository(db.Pool())
	auditRepo := audit.NewRepository(db.Pool())
	store := vault.NewStore(db.Pool())
	vaultSvc := vault.NewService(store, teamRepo, auditRepo, cipher, time.Duration(cfg.LinkTTLHours)*time.Hour)

	router := api.NewRouter(api.RouterDeps{
		DBPinger: db,
		Users:    userRepo,
		Teams:    teamRepo,
		Vault:    vaultSvc,
		Version:  cfg.Version,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting team-vault server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
