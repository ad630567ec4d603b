package service

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/josh-kwaku/order-replay/internal/domain"
)

type orderEventRepository interface {
	Append(ctx context.Context, tx *sql.Tx, rec *domain.OrderEventRecord) error
	ListByOrderID(ctx context.Context, orderID domain.OrderID) ([]domain.OrderEventRecord, error)
	ListByOrderIDTx(ctx context.Context, tx *sql.Tx, orderID domain.OrderID) ([]domain.OrderEventRecord, error)
}

type snapshotRepository interface {
	Upsert(ctx context.Context, tx *sql.Tx, snap *domain.Snapshot) error
	GetByOrderID(ctx context.Context, orderID domain.OrderID) (*domain.Snapshot, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, orderID domain.OrderID) (*domain.Snapshot, error)
}

type actionCommandRepository interface {
	Create(ctx context.Context, tx *sql.Tx, cmd *domain.ActionCommand) error
	GetPending(ctx context.Context, tx *sql.Tx, limit int) ([]domain.ActionCommand, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.ActionCommandStatus) error
}
