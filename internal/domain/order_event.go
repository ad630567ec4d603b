package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OrderEventRecord is an event as persisted in the event store.
type OrderEventRecord struct {
	ID             uuid.UUID
	OrderID        OrderID
	Kind           EventKind
	Time           uint64
	Payload        json.RawMessage
	IdempotencyKey *string
	CreatedAt      time.Time
}
