package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/order-replay/internal/domain"
)

const actionCommandColumns = `id, order_id, action, state, status, attempts, last_attempt, created_at`

type ActionCommandRepository struct {
	db *sql.DB
}

func NewActionCommandRepository(db *sql.DB) *ActionCommandRepository {
	return &ActionCommandRepository{db: db}
}

func (r *ActionCommandRepository) Create(ctx context.Context, tx *sql.Tx, cmd *domain.ActionCommand) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO action_commands (`+actionCommandColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		cmd.ID, cmd.OrderID, cmd.Action, cmd.State,
		cmd.Status, cmd.Attempts, cmd.LastAttempt, cmd.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ActionCommandRepository) GetPending(ctx context.Context, tx *sql.Tx, limit int) ([]domain.ActionCommand, error) {
	// SKIP LOCKED lets several dispatchers share the outbox
	rows, err := tx.QueryContext(ctx,
		`SELECT `+actionCommandColumns+` FROM action_commands
		WHERE status = $1 ORDER BY created_at LIMIT $2 FOR UPDATE SKIP LOCKED`,
		domain.ActionCommandStatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("GetPending: %w", err)
	}
	defer rows.Close()

	var cmds []domain.ActionCommand
	for rows.Next() {
		c, err := scanActionCommand(rows)
		if err != nil {
			return nil, fmt.Errorf("GetPending: scan: %w", err)
		}
		cmds = append(cmds, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetPending: rows: %w", err)
	}
	return cmds, nil
}

func (r *ActionCommandRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.ActionCommandStatus) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE action_commands SET status = $1, attempts = attempts + 1, last_attempt = now()
		WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStatus: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateStatus: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *ActionCommandRepository) ListByOrderID(ctx context.Context, orderID domain.OrderID) ([]domain.ActionCommand, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+actionCommandColumns+` FROM action_commands
		WHERE order_id = $1 ORDER BY created_at`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByOrderID: %w", err)
	}
	defer rows.Close()

	var cmds []domain.ActionCommand
	for rows.Next() {
		c, err := scanActionCommand(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByOrderID: scan: %w", err)
		}
		cmds = append(cmds, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByOrderID: rows: %w", err)
	}
	return cmds, nil
}

func scanActionCommand(s scanner) (*domain.ActionCommand, error) {
	var c domain.ActionCommand
	err := s.Scan(
		&c.ID, &c.OrderID, &c.Action, &c.State,
		&c.Status, &c.Attempts, &c.LastAttempt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
