package domain

import (
	"time"

	"github.com/google/uuid"
)

type ActionCommandStatus string

const (
	ActionCommandStatusPending    ActionCommandStatus = "pending"
	ActionCommandStatusDispatched ActionCommandStatus = "dispatched"
	ActionCommandStatusFailed     ActionCommandStatus = "failed"
)

// ActionCommand is an outbox row asking the external workflow to carry out the
// pending action of an order snapshot.
type ActionCommand struct {
	ID          uuid.UUID
	OrderID     OrderID
	Action      Action
	State       State
	Status      ActionCommandStatus
	Attempts    int
	LastAttempt *time.Time
	CreatedAt   time.Time
}
