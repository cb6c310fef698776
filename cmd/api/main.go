// Package main is the entry point for the fleet back office API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/fleetledger/backoffice/internal/blob"
	"github.com/fleetledger/backoffice/internal/config"
	"github.com/fleetledger/backoffice/internal/handler"
	"github.com/fleetledger/backoffice/internal/middleware"
	"github.com/fleetledger/backoffice/internal/observability"
	"github.com/fleetledger/backoffice/internal/repo"
	"github.com/fleetledger/backoffice/internal/service"
	"github.com/fleetledger/backoffice/migrations"
	"github.com/fleetledger/backoffice/spec"
)

func main() {
	// --- Config -----------------------------------------------------------
	// A .env file is a development convenience; its absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Use the default logger before ours is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Database ---------------------------------------------------------
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if cfg.MigrateOnStart {
		if err := migrate(ctx, pool); err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	// --- Redis (optional) ---------------------------------------------------
	var idempotency func(http.Handler) http.Handler
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			slog.Warn("redis ping failed, idempotency keys fail open", "error", err)
		}
		cancel()
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Warn("redis close", "error", err)
			}
		}()
		idempotency = middleware.NewIdempotency(rdb, cfg.IdempotencyTTL, logger)
	}

	// --- Services -----------------------------------------------------------
	metrics := observability.NewMetrics()
	receipts := blob.NewLocalStore(cfg.ReceiptsDir, cfg.ReceiptsBaseURL)

	repos := repo.NewRepos(pool)
	tx := repo.NewTxRunner(pool)

	tripSvc := service.NewTripService(repos.Trips, repos.Refs, tx,
		service.WithTransitionObserver(metrics),
		service.WithReceiptStore(receipts),
		service.WithLogger(logger),
	)
	expenseSvc := service.NewExpenseService(repos.Trips, repos.Expenses, tx, receipts, metrics, logger)
	summarySvc := service.NewSummaryService(repos.Trips, repos.Expenses)
	dashboardSvc := service.NewDashboardService(repos.Refs, summarySvc)
	auditSvc := service.NewAuditService(repos.Audit)

	srv := handler.NewServer(handler.Services{
		Trips:     tripSvc,
		Expenses:  expenseSvc,
		Summary:   summarySvc,
		Dashboard: dashboardSvc,
		Audit:     auditSvc,
	}, logger)

	// --- Router -----------------------------------------------------------
	// RequestID generates a unique trace ID per request.
	// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP (safe behind a proxy).
	// Recoverer catches panics and returns HTTP 500 instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewSecureHeaders(cfg.IsProduction(), logger))
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewRateLimiter(cfg.RateLimitPerMinute))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Use(metrics.Middleware)

	r.Handle("/metrics", metrics.Handler())
	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(spec.OpenAPI)
	})
	r.Handle("/comprobantes/*", http.StripPrefix("/comprobantes/", http.FileServer(http.Dir(receipts.Dir()))))
	r.Mount("/", srv.Routes(handler.RouteOptions{
		Authenticate: middleware.NewAuthenticator([]byte(cfg.JWTSecret)),
		Idempotency:  idempotency,
	}))

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to ShutdownTimeout to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr, "env", cfg.AppEnv)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		return
	}
	slog.Info("server stopped")
}

// migrate applies every pending goose migration through a database/sql
// handle borrowed from pool.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	slog.Info("migrations applied", "count", len(results))
	return nil
}
