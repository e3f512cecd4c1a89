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

	ibmqadapter "github.com/qbridge-io/qbridge/internal/adapter/driven/ibmq"
	sqliteadapter "github.com/qbridge-io/qbridge/internal/adapter/driven/sqlite"
	httphandler "github.com/qbridge-io/qbridge/internal/adapter/driving/http"
	"github.com/qbridge-io/qbridge/internal/application"
	"github.com/qbridge-io/qbridge/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"backend", cfg.Backend,
		"shots", cfg.Shots,
		"job_timeout", cfg.JobTimeout,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on the writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	jobStore := sqliteadapter.NewJobRepo(db)
	credentialStore := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)

	hub := ibmqadapter.HubConfig{Hub: cfg.Hub, Group: cfg.Group, Project: cfg.Project}
	var quantumClient *ibmqadapter.Client
	if cfg.APIURL != "" {
		quantumClient, err = ibmqadapter.NewClientWithHTTPClient(&http.Client{Timeout: 30 * time.Second}, cfg.APIURL, hub)
		if err != nil {
			return err
		}
	} else {
		quantumClient = ibmqadapter.NewClient(hub)
	}

	// 6. Resolve the default credential, if one was persisted.
	defaultToken := ""
	if cfg.HasSecretKey() {
		stored, err := credentialStore.Get(ctx, "ibmq")
		if err != nil {
			slog.Warn("failed to read stored credential", "error", err)
		} else {
			defaultToken = stored
		}
	} else {
		slog.Info("no secret key configured, credential persistence disabled")
	}
	tokens := application.NewTokenProvider(defaultToken)

	// 7. Create the submit service.
	submitSvc := application.NewSubmitService(
		quantumClient,
		jobStore,
		credentialStore,
		tokens,
		cfg.Backend,
		cfg.Shots,
		cfg.JobTimeout,
		slog.Default(),
	)

	// 8. Create the HTTP handler and register routes.
	apiHandler := httphandler.NewHandler(submitSvc, jobStore, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Submissions hold the connection for the whole remote job wait.
		WriteTimeout: cfg.JobTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("qbridge started",
		"listen_addr", cfg.ListenAddr,
		"backend", cfg.Backend,
		"hub", cfg.Hub,
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown; give in-flight submissions a chance to record
	// their outcome.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
