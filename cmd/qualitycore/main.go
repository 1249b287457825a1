package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/baron-png/quality-core/internal/adapter/collabhttp"
	qchttp "github.com/baron-png/quality-core/internal/adapter/http"
	"github.com/baron-png/quality-core/internal/adapter/identity"
	qcnats "github.com/baron-png/quality-core/internal/adapter/nats"
	"github.com/baron-png/quality-core/internal/adapter/otel"
	"github.com/baron-png/quality-core/internal/adapter/postgres"
	"github.com/baron-png/quality-core/internal/adapter/ristretto"
	"github.com/baron-png/quality-core/internal/config"
	"github.com/baron-png/quality-core/internal/logger"
	"github.com/baron-png/quality-core/internal/middleware"
	"github.com/baron-png/quality-core/internal/port/messagequeue"
	"github.com/baron-png/quality-core/internal/resilience"
	"github.com/baron-png/quality-core/internal/saga"
	"github.com/baron-png/quality-core/internal/service"
)

const version = "0.1.0"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(logger.Config{Level: cfg.Logging.Level, Service: cfg.Logging.Service}))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx := context.Background()

	shutdownOtel, err := otel.Init(ctx, cfg.Logging.Service, version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOtel(shutdownCtx)
	}()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// NATS is best-effort: events and idempotency replay degrade gracefully
	// without it, saga correctness does not depend on it.
	var queue messagequeue.Queue
	var responseStore middleware.ResponseStore
	natsQueue, err := qcnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, events and idempotency replay disabled", "error", err)
	} else {
		defer func() { _ = natsQueue.Close() }()
		queue = natsQueue

		store, err := natsQueue.ResponseStore(ctx, cfg.Idempotency.Bucket, cfg.Idempotency.TTL)
		if err != nil {
			slog.Warn("idempotency store unavailable", "error", err)
		} else {
			responseStore = store
		}
	}

	claimsCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("claims cache: %w", err)
	}
	defer claimsCache.Close()

	// --- Collaborator clients ---

	identityClient := identity.New(cfg.Collaborators.IdentityURL, cfg.Collaborators.Timeout,
		newBreaker(cfg.Breaker))
	documentClient := newCollaborator("document", cfg.Collaborators.DocumentURL, cfg)
	notificationClient := newCollaborator("notification", cfg.Collaborators.NotificationURL, cfg)

	// --- Services ---

	exec := saga.NewExecutor(saga.RetryPolicy{
		MaxAttempts: cfg.Saga.MaxAttempts,
		Base:        cfg.Saga.Base,
		Cap:         cfg.Saga.Cap,
		Multiplier:  cfg.Saga.Multiplier,
	})
	orch := saga.NewOrchestrator(exec)

	metrics, err := otel.NewMetrics()
	if err != nil {
		slog.Warn("metrics disabled", "error", err)
		metrics = nil
	}

	store := postgres.NewStore(pool)
	provisioningSvc := service.NewProvisioningService(
		store, identityClient, documentClient, notificationClient, orch, queue, metrics)
	resyncSvc := service.NewResyncService(store, identityClient, documentClient, notificationClient)
	auditSvc := service.NewAuditService(store, queue, metrics)

	cancelFailures, err := provisioningSvc.StartFailureSubscriber(ctx)
	if err != nil {
		slog.Warn("saga failure subscriber disabled", "error", err)
	} else {
		defer cancelFailures()
	}

	// --- HTTP ---

	handlers := &qchttp.Handlers{
		Provisioning: provisioningSvc,
		Resync:       resyncSvc,
		Audit:        auditSvc,
		Store:        store,
		Version:      version,
	}
	if natsQueue != nil {
		handlers.QueueConnected = natsQueue.IsConnected
	}

	r := chi.NewRouter()

	r.Use(qchttp.SecurityHeaders)
	r.Use(qchttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(qchttp.Logger)
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.Server.RequestTimeout))
	r.Use(middleware.Auth([]byte(cfg.Auth.JWTSecret), claimsCache, cfg.Auth.ClaimsTTL))
	if responseStore != nil {
		r.Use(middleware.Idempotency(responseStore))
	}

	qchttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func newBreaker(cfg config.Breaker) *resilience.Breaker {
	return resilience.NewBreaker(cfg.MaxFailures, cfg.Timeout)
}

func newCollaborator(name, baseURL string, cfg *config.Config) *collabhttp.Client {
	return collabhttp.New(name, baseURL, cfg.Collaborators.Timeout, newBreaker(cfg.Breaker))
}
