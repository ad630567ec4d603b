package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/order-replay/internal/domain"
	"github.com/josh-kwaku/order-replay/internal/eventcodec"
	"github.com/josh-kwaku/order-replay/internal/logging"
	"github.com/josh-kwaku/order-replay/internal/service"
)

type orderService interface {
	RecordEvent(ctx context.Context, req service.RecordEventRequest) (*domain.Snapshot, error)
	GetOrder(ctx context.Context, orderID domain.OrderID) (*domain.Snapshot, error)
	RebuildOrder(ctx context.Context, orderID domain.OrderID) (*domain.Snapshot, error)
	ListEvents(ctx context.Context, orderID domain.OrderID) ([]domain.Event, error)
}

type OrderHandler struct {
	orders orderService
}

func NewOrderHandler(orders orderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type recordEventRequest eventcodec.Envelope

// Validate fills in the order id from the path when the body leaves it out.
func (r *recordEventRequest) Validate(orderID domain.OrderID) []FieldError {
	var errs []FieldError

	if r.Kind == "" {
		errs = append(errs, FieldError{Field: "kind", Message: "required"})
	} else if !r.Kind.IsValid() {
		errs = append(errs, FieldError{Field: "kind", Message: fmt.Sprintf("unknown event kind %q", r.Kind)})
	}

	if r.Kind != domain.EventKindCustomerAdded {
		if r.OrderID == "" {
			r.OrderID = orderID
		} else if r.OrderID != orderID {
			errs = append(errs, FieldError{Field: "order_id", Message: "must match the order in the path"})
		}
	}

	if len(r.Payload) == 0 {
		r.Payload = json.RawMessage(`{}`)
	}

	return errs
}

type orderDTO struct {
	ID             domain.OrderID         `json:"id"`
	State          domain.State           `json:"state"`
	Action         domain.Action          `json:"action"`
	PaymentMethod  *domain.PaymentMethod  `json:"payment_method,omitempty"`
	Amount         decimal.Decimal        `json:"amount"`
	DeliveryMethod *domain.DeliveryMethod `json:"delivery_method,omitempty"`
	Items          []domain.ItemID        `json:"items"`
	Address        *domain.Address        `json:"address,omitempty"`
	CustomerID     *domain.CustomerID     `json:"customer_id,omitempty"`
	MachineState   domain.State           `json:"machine_state"`
	EventCount     int                    `json:"event_count"`
	LastEventTime  uint64                 `json:"last_event_time"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

func toOrderDTO(s *domain.Snapshot) orderDTO {
	o := s.Order
	items := o.Items
	if items == nil {
		items = []domain.ItemID{}
	}
	return orderDTO{
		ID:             o.ID,
		State:          o.State,
		Action:         o.Action,
		PaymentMethod:  o.PaymentMethod,
		Amount:         o.Amount,
		DeliveryMethod: o.DeliveryMethod,
		Items:          items,
		Address:        o.Address,
		CustomerID:     o.CustomerID,
		MachineState:   s.MachineState,
		EventCount:     s.EventCount,
		LastEventTime:  s.LastEventTime,
		UpdatedAt:      s.UpdatedAt,
	}
}

func (h *OrderHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	orderID := domain.OrderID(r.PathValue("id"))
	ctx, log := logging.WithOrder(r.Context(), orderID)

	var req recordEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(orderID); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	event, err := eventcodec.Decode(eventcodec.Envelope(req))
	if err != nil {
		log.Warn("event rejected", "error", err)
		RespondDomainError(w, err)
		return
	}

	var idempotencyKey *string
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		idempotencyKey = &key
	}

	snap, err := h.orders.RecordEvent(ctx, service.RecordEventRequest{
		OrderID:        orderID,
		Event:          event,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		log.Warn("recording event failed", "kind", req.Kind, "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/orders/%s", orderID))
	RespondSuccess(w, http.StatusCreated, toOrderDTO(snap))
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID := domain.OrderID(r.PathValue("id"))

	snap, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("order lookup failed", "order_id", orderID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toOrderDTO(snap))
}

func (h *OrderHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	orderID := domain.OrderID(r.PathValue("id"))

	events, err := h.orders.ListEvents(r.Context(), orderID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("event listing failed", "order_id", orderID, "error", err)
		RespondDomainError(w, err)
		return
	}

	envs := make([]eventcodec.Envelope, 0, len(events))
	for _, ev := range events {
		env, err := eventcodec.Encode(ev)
		if err != nil {
			RespondDomainError(w, err)
			return
		}
		envs = append(envs, env)
	}

	RespondSuccess(w, http.StatusOK, envs)
}

func (h *OrderHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	orderID := domain.OrderID(r.PathValue("id"))
	ctx, log := logging.WithOrder(r.Context(), orderID)

	snap, err := h.orders.RebuildOrder(ctx, orderID)
	if err != nil {
		log.Warn("rebuild failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toOrderDTO(snap))
}
