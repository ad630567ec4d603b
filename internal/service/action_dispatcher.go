package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/josh-kwaku/order-replay/internal/domain"
	"github.com/josh-kwaku/order-replay/internal/logging"
	"github.com/josh-kwaku/order-replay/internal/metrics"
)

const maxDispatchAttempts = 5

type actionPublisher interface {
	Publish(ctx context.Context, cmd domain.ActionCommand) error
}

// ActionDispatcher drains the action command outbox into the order workflow.
type ActionDispatcher struct {
	commands  actionCommandRepository
	publisher actionPublisher
	metrics   *metrics.Metrics
	db        *sql.DB
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewActionDispatcher(
	commands actionCommandRepository,
	publisher actionPublisher,
	m *metrics.Metrics,
	db *sql.DB,
	logger *slog.Logger,
	interval time.Duration,
	batchSize int,
) *ActionDispatcher {
	return &ActionDispatcher{
		commands:  commands,
		publisher: publisher,
		metrics:   m,
		db:        db,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (d *ActionDispatcher) Start(ctx context.Context) {
	d.logger.Info("action dispatcher started", "interval", d.interval, "batch_size", d.batchSize)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("action dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := d.DispatchPending(ctx); err != nil {
				d.logger.Error("failed to dispatch action commands", "error", err)
			}
		}
	}
}

// DispatchPending publishes one batch of pending commands and returns how many were
// delivered. Commands that fail are retried on later polls until they run out of
// attempts.
func (d *ActionDispatcher) DispatchPending(ctx context.Context) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("DispatchPending: begin tx: %w", err)
	}
	defer tx.Rollback()

	cmds, err := d.commands.GetPending(ctx, tx, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("DispatchPending: %w", err)
	}

	delivered := 0
	for _, cmd := range cmds {
		status := d.dispatch(ctx, cmd)
		if err := d.commands.UpdateStatus(ctx, tx, cmd.ID, status); err != nil {
			return 0, fmt.Errorf("DispatchPending: %w", err)
		}
		if status == domain.ActionCommandStatusDispatched {
			delivered++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("DispatchPending: commit: %w", err)
	}
	return delivered, nil
}

func (d *ActionDispatcher) dispatch(ctx context.Context, cmd domain.ActionCommand) domain.ActionCommandStatus {
	log := d.logger.With("order_id", cmd.OrderID, "command_id", cmd.ID, "action", cmd.Action)
	ctx = logging.WithLogger(ctx, log)

	if err := d.publisher.Publish(ctx, cmd); err != nil {
		if cmd.Attempts+1 >= maxDispatchAttempts {
			log.Error("action command abandoned", "attempts", cmd.Attempts+1, "error", err)
			d.metrics.ActionsSent.WithLabelValues(string(cmd.Action), "failed").Inc()
			return domain.ActionCommandStatusFailed
		}
		log.Warn("action command publish failed, will retry", "attempts", cmd.Attempts+1, "error", err)
		d.metrics.ActionsSent.WithLabelValues(string(cmd.Action), "retry").Inc()
		return domain.ActionCommandStatusPending
	}

	log.Info("action command dispatched")
	d.metrics.ActionsSent.WithLabelValues(string(cmd.Action), "dispatched").Inc()
	return domain.ActionCommandStatusDispatched
}
