package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/josh-kwaku/order-replay/internal/domain"
)

const snapshotColumns = `order_id, state, action, machine_state, payment_method, amount,
	delivery_method, items, address, customer_id, event_count, last_event_time, updated_at`

type OrderSnapshotRepository struct {
	db *sql.DB
}

func NewOrderSnapshotRepository(db *sql.DB) *OrderSnapshotRepository {
	return &OrderSnapshotRepository{db: db}
}

func (r *OrderSnapshotRepository) Upsert(ctx context.Context, tx *sql.Tx, snap *domain.Snapshot) error {
	o := snap.Order

	lastAt, err := toColumnTime(snap.LastEventTime)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	var address []byte
	if o.Address != nil {
		address, err = json.Marshal(o.Address)
		if err != nil {
			return fmt.Errorf("Upsert: marshal address: %w", err)
		}
	}

	items := make(pq.StringArray, len(o.Items))
	for i, id := range o.Items {
		items[i] = string(id)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_snapshots (`+snapshotColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (order_id) DO UPDATE SET
			state = EXCLUDED.state,
			action = EXCLUDED.action,
			machine_state = EXCLUDED.machine_state,
			payment_method = EXCLUDED.payment_method,
			amount = EXCLUDED.amount,
			delivery_method = EXCLUDED.delivery_method,
			items = EXCLUDED.items,
			address = EXCLUDED.address,
			customer_id = EXCLUDED.customer_id,
			event_count = EXCLUDED.event_count,
			last_event_time = EXCLUDED.last_event_time,
			updated_at = EXCLUDED.updated_at`,
		o.ID, o.State, o.Action, snap.MachineState,
		nullString(o.PaymentMethod), o.Amount, nullString(o.DeliveryMethod),
		items, address, nullString(o.CustomerID),
		snap.EventCount, lastAt, snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (r *OrderSnapshotRepository) GetByOrderID(ctx context.Context, orderID domain.OrderID) (*domain.Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM order_snapshots WHERE order_id = $1`, orderID,
	)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("GetByOrderID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetByOrderID: %w", err)
	}
	return snap, nil
}

// GetForUpdate serializes writers of one order for the rest of tx and returns the
// order's snapshot. The advisory lock also covers orders that have no snapshot
// row yet, in which case ErrNotFound is returned with the lock still held.
func (r *OrderSnapshotRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, orderID domain.OrderID) (*domain.Snapshot, error) {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, orderID); err != nil {
		return nil, fmt.Errorf("GetForUpdate: lock: %w", err)
	}

	row := tx.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM order_snapshots WHERE order_id = $1 FOR UPDATE`, orderID,
	)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return snap, nil
}

func scanSnapshot(s scanner) (*domain.Snapshot, error) {
	var (
		snap           domain.Snapshot
		paymentMethod  sql.NullString
		deliveryMethod sql.NullString
		customerID     sql.NullString
		items          pq.StringArray
		address        []byte
		lastAt         int64
	)
	o := &snap.Order
	err := s.Scan(
		&o.ID, &o.State, &o.Action, &snap.MachineState,
		&paymentMethod, &o.Amount, &deliveryMethod,
		&items, &address, &customerID,
		&snap.EventCount, &lastAt, &snap.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	snap.LastEventTime = uint64(lastAt)
	if paymentMethod.Valid {
		pm := domain.PaymentMethod(paymentMethod.String)
		o.PaymentMethod = &pm
	}
	if deliveryMethod.Valid {
		dm := domain.DeliveryMethod(deliveryMethod.String)
		o.DeliveryMethod = &dm
	}
	if customerID.Valid {
		c := domain.CustomerID(customerID.String)
		o.CustomerID = &c
	}
	o.Items = make([]domain.ItemID, len(items))
	for i, id := range items {
		o.Items[i] = domain.ItemID(id)
	}
	if address != nil {
		var a domain.Address
		if err := json.Unmarshal(address, &a); err != nil {
			return nil, fmt.Errorf("unmarshal address: %w", err)
		}
		o.Address = &a
	}
	return &snap, nil
}

func nullString[T ~string](v *T) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*v), Valid: true}
}
