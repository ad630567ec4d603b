package main

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/josh-kwaku/order-replay/internal/config"
	"github.com/josh-kwaku/order-replay/internal/metrics"
	"github.com/josh-kwaku/order-replay/internal/repository"
	"github.com/josh-kwaku/order-replay/internal/service"
)

const idempotencyCleanupInterval = time.Hour

// newDispatcher publishes to Kafka when brokers are configured and to the HTTP
// workflow otherwise. The returned func releases the publisher.
func newDispatcher(
	cfg *config.Config,
	commands *repository.ActionCommandRepository,
	m *metrics.Metrics,
	db *sql.DB,
	logger *slog.Logger,
) (*service.ActionDispatcher, func() error) {
	log := logger.With("component", "action_dispatcher")

	if len(cfg.KafkaBrokers) > 0 {
		kp := service.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaActionsTopic)
		log.Info("publishing action commands to kafka", "topic", cfg.KafkaActionsTopic)
		d := service.NewActionDispatcher(commands, kp, m, db, log, cfg.DispatchInterval(), cfg.DispatchBatchSize)
		return d, kp.Close
	}

	log.Info("publishing action commands over http", "url", cfg.WorkflowURL)
	wc := service.NewWorkflowClient(cfg.WorkflowURL)
	d := service.NewActionDispatcher(commands, wc, m, db, log, cfg.DispatchInterval(), cfg.DispatchBatchSize)
	return d, func() error { return nil }
}

func cleanIdempotencyCache(ctx context.Context, repo *repository.IdempotencyRepository, logger *slog.Logger) {
	ticker := time.NewTicker(idempotencyCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.CleanExpired(ctx)
			if err != nil {
				logger.Error("failed to clean idempotency cache", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("expired idempotency entries removed", "count", n)
			}
		}
	}
}
