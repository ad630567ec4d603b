package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/josh-kwaku/order-replay/internal/domain"
)

const orderEventColumns = `id, order_id, kind, logical_time, payload, idempotency_key, created_at`

type OrderEventRepository struct {
	db *sql.DB
}

func NewOrderEventRepository(db *sql.DB) *OrderEventRepository {
	return &OrderEventRepository{db: db}
}

func (r *OrderEventRepository) Append(ctx context.Context, tx *sql.Tx, rec *domain.OrderEventRecord) error {
	at, err := toColumnTime(rec.Time)
	if err != nil {
		return fmt.Errorf("Append: %w: %w", domain.ErrInvalidEvent, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_events (id, order_id, kind, logical_time, payload, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.OrderID, rec.Kind, at, []byte(rec.Payload), rec.IdempotencyKey, rec.CreatedAt,
	)
	if isDuplicateKey(err) {
		return fmt.Errorf("Append: %w", domain.ErrDuplicateEvent)
	}
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}

// ListByOrderID returns the stored events of an order in insertion order.
func (r *OrderEventRepository) ListByOrderID(ctx context.Context, orderID domain.OrderID) ([]domain.OrderEventRecord, error) {
	records, err := listOrderEvents(ctx, r.db, orderID)
	if err != nil {
		return nil, fmt.Errorf("ListByOrderID: %w", err)
	}
	return records, nil
}

// ListByOrderIDTx is ListByOrderID inside tx, so it sees the log as of the
// caller's lock on the order.
func (r *OrderEventRepository) ListByOrderIDTx(ctx context.Context, tx *sql.Tx, orderID domain.OrderID) ([]domain.OrderEventRecord, error) {
	records, err := listOrderEvents(ctx, tx, orderID)
	if err != nil {
		return nil, fmt.Errorf("ListByOrderIDTx: %w", err)
	}
	return records, nil
}

func listOrderEvents(ctx context.Context, q querier, orderID domain.OrderID) ([]domain.OrderEventRecord, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+orderEventColumns+` FROM order_events
		WHERE order_id = $1 ORDER BY seq`, orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.OrderEventRecord
	for rows.Next() {
		rec, err := scanOrderEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return records, nil
}

func scanOrderEvent(s scanner) (*domain.OrderEventRecord, error) {
	var (
		rec     domain.OrderEventRecord
		at      int64
		payload []byte
		key     sql.NullString
	)
	err := s.Scan(&rec.ID, &rec.OrderID, &rec.Kind, &at, &payload, &key, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.Time = uint64(at)
	rec.Payload = payload
	if key.Valid {
		rec.IdempotencyKey = &key.String
	}
	return &rec, nil
}
