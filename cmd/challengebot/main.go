package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/beat-interviewing/challenge-bot/internal/adapter/driven/github"
	greenhouseadapter "github.com/beat-interviewing/challenge-bot/internal/adapter/driven/greenhouse"
	sqliteadapter "github.com/beat-interviewing/challenge-bot/internal/adapter/driven/sqlite"
	httphandler "github.com/beat-interviewing/challenge-bot/internal/adapter/driving/http"
	"github.com/beat-interviewing/challenge-bot/internal/application"
	"github.com/beat-interviewing/challenge-bot/internal/config"
	"github.com/beat-interviewing/challenge-bot/internal/domain/port/driven"
	"github.com/beat-interviewing/challenge-bot/internal/i18n"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"org", cfg.Org,
		"store", cfg.Store,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Create GitHub client.
	ghClient := githubadapter.NewClient(cfg.GitHubToken)

	// 4. Pick the challenge store backend. Issue-backed is the default; the
	// SQLite backend keeps records out of issue bodies at the cost of a local
	// database file.
	var store driven.ChallengeStore
	if cfg.Store == config.StoreSQLite {
		db, err := sqliteadapter.NewDB(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			return err
		}
		slog.Info("database opened", "path", cfg.DBPath)

		store = sqliteadapter.NewChallengeRepo(db)
	} else {
		store = githubadapter.NewIssueMetaStore(ghClient)
	}

	// 5. Wire the remaining driven adapters.
	notifier := greenhouseadapter.NewNotifier(nil, cfg.GreenhouseUsername, cfg.GreenhousePassword)

	renderer, err := i18n.NewRenderer("en")
	if err != nil {
		return err
	}
	replier := i18n.NewReplier(renderer, ghClient)

	// 6. Create application services.
	mirror := application.NewMirror(ghClient, cfg.CopyConcurrency)
	challengeSvc := application.NewChallengeService(store, ghClient, ghClient, notifier, replier, mirror)
	greenhouseSvc := application.NewGreenhouseService(ghClient, store, notifier, renderer, cfg.Org)

	// 7. Create HTTP handler and register routes.
	apiHandler := httphandler.NewHandler(challengeSvc, greenhouseSvc, cfg.WebhookSecret, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, cfg.GreenhouseAPIKey, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("challenge-bot started", "listen_addr", cfg.ListenAddr, "org", cfg.Org)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 9. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
