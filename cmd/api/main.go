package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/josh-kwaku/order-replay/api"
	"github.com/josh-kwaku/order-replay/internal/config"
	"github.com/josh-kwaku/order-replay/internal/handler"
	"github.com/josh-kwaku/order-replay/internal/logging"
	"github.com/josh-kwaku/order-replay/internal/metrics"
	"github.com/josh-kwaku/order-replay/internal/middleware"
	"github.com/josh-kwaku/order-replay/internal/reducer"
	"github.com/josh-kwaku/order-replay/internal/repository"
	"github.com/josh-kwaku/order-replay/internal/service"
	"github.com/josh-kwaku/order-replay/internal/statemachine"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("order-replay-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	table := statemachine.DefaultTable()
	if err := table.Validate(); err != nil {
		slog.Error("transition table is incomplete", "error", err)
		os.Exit(1)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	eventRepo := repository.NewOrderEventRepository(db)
	snapshotRepo := repository.NewOrderSnapshotRepository(db)
	commandRepo := repository.NewActionCommandRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	orderSvc := service.NewOrderService(
		eventRepo,
		snapshotRepo,
		commandRepo,
		reducer.New(table, logger.With("component", "reducer")),
		m,
		db,
	)

	health := handler.NewHealthHandler(db, version)
	orders := handler.NewOrderHandler(orderSvc)

	authn := middleware.Auth(cfg.JWTSecret)
	writer := func(h http.HandlerFunc) http.Handler { return authn(middleware.RequireWriter(h)) }
	reader := func(h http.HandlerFunc) http.Handler { return authn(h) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.Liveness)
	mux.HandleFunc("GET /health/ready", health.Readiness)
	mux.Handle("GET /metrics", metrics.Handler(prometheus.DefaultGatherer))
	mux.HandleFunc("GET /docs", handler.ServeDocs())
	mux.HandleFunc("GET /docs/openapi.yaml", handler.ServeSpec(api.Spec))

	mux.Handle("POST /api/v1/orders/{id}/events",
		authn(middleware.RequireWriter(middleware.Idempotency(idempotencyRepo)(http.HandlerFunc(orders.RecordEvent)))))
	mux.Handle("GET /api/v1/orders/{id}", reader(orders.Get))
	mux.Handle("GET /api/v1/orders/{id}/events", reader(orders.ListEvents))
	mux.Handle("POST /api/v1/orders/{id}/rebuild", writer(orders.Rebuild))

	var root http.Handler = mux
	root = middleware.Metrics(m)(root)
	root = middleware.Logging(root)
	root = middleware.Tracing(root)
	root = middleware.Recovery(root)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	dispatcher, closePublisher := newDispatcher(cfg, commandRepo, m, db, logger)
	defer func() {
		if err := closePublisher(); err != nil {
			slog.Error("failed to close action publisher", "error", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		dispatcher.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanIdempotencyCache(ctx, idempotencyRepo, logger)
	}()

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	wg.Wait()
	slog.Info("server stopped")
}
