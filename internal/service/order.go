package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/order-replay/internal/domain"
	"github.com/josh-kwaku/order-replay/internal/eventcodec"
	"github.com/josh-kwaku/order-replay/internal/logging"
	"github.com/josh-kwaku/order-replay/internal/metrics"
	"github.com/josh-kwaku/order-replay/internal/reducer"
)

type RecordEventRequest struct {
	OrderID        domain.OrderID
	Event          domain.Event
	IdempotencyKey *string
}

type OrderService struct {
	events    orderEventRepository
	snapshots snapshotRepository
	commands  actionCommandRepository
	reducer   *reducer.Reducer
	metrics   *metrics.Metrics
	db        *sql.DB
}

func NewOrderService(
	events orderEventRepository,
	snapshots snapshotRepository,
	commands actionCommandRepository,
	r *reducer.Reducer,
	m *metrics.Metrics,
	db *sql.DB,
) *OrderService {
	return &OrderService{
		events:    events,
		snapshots: snapshots,
		commands:  commands,
		reducer:   r,
		metrics:   m,
		db:        db,
	}
}

// RecordEvent stores event and folds it into the order's snapshot. Events that
// arrive in logical time order are folded onto the stored snapshot; late events
// trigger a full replay of the order's log. Writers of the same order are
// serialized for the duration of the transaction.
func (s *OrderService) RecordEvent(ctx context.Context, req RecordEventRequest) (*domain.Snapshot, error) {
	ctx, log := logging.WithOrder(ctx, req.OrderID)

	if err := validateEvent(req.OrderID, req.Event); err != nil {
		return nil, fmt.Errorf("RecordEvent: %w", err)
	}

	env, err := eventcodec.Encode(req.Event)
	if err != nil {
		return nil, fmt.Errorf("RecordEvent: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("RecordEvent: begin tx: %w", err)
	}
	defer tx.Rollback()

	prev, err := s.snapshots.GetForUpdate(ctx, tx, req.OrderID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("RecordEvent: %w", err)
	}

	next, mode, err := s.fold(ctx, tx, req, prev)
	if err != nil {
		return nil, fmt.Errorf("RecordEvent: %w", err)
	}

	now := time.Now().UTC()
	next.UpdatedAt = now

	rec := &domain.OrderEventRecord{
		ID:             uuid.New(),
		OrderID:        req.OrderID,
		Kind:           env.Kind,
		Time:           env.Time,
		Payload:        env.Payload,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
	}
	if err := s.events.Append(ctx, tx, rec); err != nil {
		return nil, fmt.Errorf("RecordEvent: %w", err)
	}

	if err := s.snapshots.Upsert(ctx, tx, next); err != nil {
		return nil, fmt.Errorf("RecordEvent: %w", err)
	}

	prevAction := domain.ActionNone
	if prev != nil {
		prevAction = prev.Order.Action
	}
	if err := s.enqueueAction(ctx, tx, prevAction, next, now); err != nil {
		return nil, fmt.Errorf("RecordEvent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("RecordEvent: commit: %w", err)
	}

	s.metrics.EventsRecorded.WithLabelValues(string(env.Kind)).Inc()
	s.observeFailure(ctx, prev, next)

	log.Info("event recorded",
		"kind", env.Kind,
		"time", env.Time,
		"mode", mode,
		"state", next.Order.State,
		"action", next.Order.Action,
	)
	return next, nil
}

func (s *OrderService) fold(ctx context.Context, tx *sql.Tx, req RecordEventRequest, prev *domain.Snapshot) (*domain.Snapshot, string, error) {
	start := time.Now()

	if prev != nil && req.Event.At() >= prev.LastEventTime {
		order, machineState := s.reducer.Resume(prev.Order, prev.MachineState, []domain.Event{req.Event})
		s.metrics.ReplayDuration.WithLabelValues("resume").Observe(time.Since(start).Seconds())
		return &domain.Snapshot{
			Order:         order,
			MachineState:  machineState,
			EventCount:    prev.EventCount + 1,
			LastEventTime: req.Event.At(),
		}, "resume", nil
	}

	events, err := reducer.AddEvent(ctx, req.OrderID, req.Event, s.loadEventsTx(tx))
	if err != nil {
		return nil, "", err
	}
	snap := s.replay(req.OrderID, events)
	s.metrics.ReplayDuration.WithLabelValues("replay").Observe(time.Since(start).Seconds())
	return snap, "replay", nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID domain.OrderID) (*domain.Snapshot, error) {
	snap, err := s.snapshots.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("GetOrder: %w", err)
	}
	return snap, nil
}

// RebuildOrder replays the whole stored log and overwrites the snapshot. It does
// not enqueue action commands.
func (s *OrderService) RebuildOrder(ctx context.Context, orderID domain.OrderID) (*domain.Snapshot, error) {
	ctx, log := logging.WithOrder(ctx, orderID)
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("RebuildOrder: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.snapshots.GetForUpdate(ctx, tx, orderID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("RebuildOrder: %w", err)
	}

	events, err := s.loadEventsTx(tx)(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("RebuildOrder: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("RebuildOrder: %w", domain.ErrNotFound)
	}

	snap := s.replay(orderID, events)
	snap.UpdatedAt = time.Now().UTC()
	s.metrics.ReplayDuration.WithLabelValues("rebuild").Observe(time.Since(start).Seconds())

	if err := s.snapshots.Upsert(ctx, tx, snap); err != nil {
		return nil, fmt.Errorf("RebuildOrder: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("RebuildOrder: commit: %w", err)
	}

	log.Info("order rebuilt", "events", snap.EventCount, "state", snap.Order.State)
	return snap, nil
}

// ListEvents returns the order's events sorted by logical time.
func (s *OrderService) ListEvents(ctx context.Context, orderID domain.OrderID) ([]domain.Event, error) {
	events, err := s.loadEvents(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("ListEvents: %w", err)
	}
	reducer.SortEvents(events)
	return events, nil
}

func (s *OrderService) replay(orderID domain.OrderID, events []domain.Event) *domain.Snapshot {
	order, machineState := s.reducer.Replay(orderID, events)

	var last uint64
	for _, ev := range events {
		last = max(last, ev.At())
	}
	return &domain.Snapshot{
		Order:         order,
		MachineState:  machineState,
		EventCount:    len(events),
		LastEventTime: last,
	}
}

func (s *OrderService) loadEvents(ctx context.Context, orderID domain.OrderID) ([]domain.Event, error) {
	records, err := s.events.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("loadEvents: %w", err)
	}
	return decodeRecords(records)
}

// loadEventsTx reads the log inside tx, behind the order lock taken there.
func (s *OrderService) loadEventsTx(tx *sql.Tx) reducer.FetchFunc {
	return func(ctx context.Context, orderID domain.OrderID) ([]domain.Event, error) {
		records, err := s.events.ListByOrderIDTx(ctx, tx, orderID)
		if err != nil {
			return nil, fmt.Errorf("loadEvents: %w", err)
		}
		return decodeRecords(records)
	}
}

func decodeRecords(records []domain.OrderEventRecord) ([]domain.Event, error) {
	events := make([]domain.Event, 0, len(records))
	for _, rec := range records {
		ev, err := eventcodec.Decode(eventcodec.Envelope{
			Kind:    rec.Kind,
			OrderID: rec.OrderID,
			Time:    rec.Time,
			Payload: rec.Payload,
		})
		if err != nil {
			return nil, fmt.Errorf("decode event %s: %w", rec.ID, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *OrderService) enqueueAction(ctx context.Context, tx *sql.Tx, prev domain.Action, next *domain.Snapshot, now time.Time) error {
	action := next.Order.Action
	if action == domain.ActionNone || action == prev {
		return nil
	}

	cmd := &domain.ActionCommand{
		ID:        uuid.New(),
		OrderID:   next.Order.ID,
		Action:    action,
		State:     next.Order.State,
		Status:    domain.ActionCommandStatusPending,
		CreatedAt: now,
	}
	if err := s.commands.Create(ctx, tx, cmd); err != nil {
		return fmt.Errorf("enqueueAction: %w", err)
	}
	return nil
}

func (s *OrderService) observeFailure(ctx context.Context, prev, next *domain.Snapshot) {
	if next.Order.State != domain.StateFailed {
		return
	}
	if prev != nil && prev.Order.State == domain.StateFailed {
		return
	}
	s.metrics.OrdersFailed.Inc()
	logging.FromContext(ctx).Warn("order entered failed state", "action", next.Order.Action)
}

func validateEvent(orderID domain.OrderID, event domain.Event) error {
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", domain.ErrInvalidRequest)
	}
	if event == nil {
		return fmt.Errorf("%w: event is required", domain.ErrInvalidRequest)
	}
	if id, ok := domain.EventOrderID(event); ok && id != orderID {
		return fmt.Errorf("%w: event belongs to order %q", domain.ErrInvalidEvent, id)
	}
	return nil
}
