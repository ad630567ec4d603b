// Package reducer rebuilds an Order snapshot by folding its events, in logical time
// order, through the lifecycle state machine.
//
// The fold never fails. Event sequences that make no business sense drive the
// snapshot into the Failed state, usually with a CheckOrder action, and it stays
// there for the rest of the replay. Later events can still change the action, so a
// Failed snapshot does not always carry CheckOrder.
package reducer

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/josh-kwaku/order-replay/internal/domain"
	"github.com/josh-kwaku/order-replay/internal/statemachine"
)

// FetchFunc loads the events already stored for an order, in any order.
type FetchFunc func(ctx context.Context, orderID domain.OrderID) ([]domain.Event, error)

type Reducer struct {
	table  *statemachine.Table
	logger *slog.Logger
}

func New(table *statemachine.Table, logger *slog.Logger) *Reducer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reducer{table: table, logger: logger}
}

// NewMachine returns a machine over the reducer's table positioned at state.
func (r *Reducer) NewMachine(state domain.State) *statemachine.FSM {
	return statemachine.New(r.table, state)
}

// SortEvents stable-sorts events ascending by logical time. Events sharing a time
// keep their relative order.
func SortEvents(events []domain.Event) {
	slices.SortStableFunc(events, func(a, b domain.Event) int {
		return cmp.Compare(a.At(), b.At())
	})
}

// AddEvent appends event to the events fetch returns for orderID and returns the
// whole set sorted by logical time.
func AddEvent(ctx context.Context, orderID domain.OrderID, event domain.Event, fetch FetchFunc) ([]domain.Event, error) {
	stored, err := fetch(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("AddEvent: %w", err)
	}

	events := make([]domain.Event, 0, len(stored)+1)
	events = append(events, stored...)
	events = append(events, event)
	SortEvents(events)
	return events, nil
}

// Replay sorts events and folds them into a fresh order starting from Empty. It
// returns the machine's final state alongside the snapshot so folding can later be
// resumed.
func (r *Reducer) Replay(orderID domain.OrderID, events []domain.Event) (domain.Order, domain.State) {
	sorted := slices.Clone(events)
	SortEvents(sorted)

	machine := r.NewMachine(domain.StateEmpty)
	order := r.Aggregate(sorted, domain.NewOrder(orderID), machine)
	return order, machine.CurrentState()
}

// Resume continues a fold from a previously computed snapshot and machine state.
// events must already be in logical time order and not earlier than anything
// folded into order.
func (r *Reducer) Resume(order domain.Order, machineState domain.State, events []domain.Event) (domain.Order, domain.State) {
	machine := r.NewMachine(machineState)
	order = r.Aggregate(events, order, machine)
	return order, machine.CurrentState()
}

// Aggregate folds events, in the order given, into initial. The machine is advanced
// once per event. The initial order is not modified.
func (r *Reducer) Aggregate(events []domain.Event, initial domain.Order, machine statemachine.Machine) domain.Order {
	order := initial.Clone()
	for _, event := range events {
		wasFailed := order.State == domain.StateFailed

		res := machine.Transition(event.Kind())
		r.apply(&order, event, res)

		if wasFailed {
			order.State = domain.StateFailed
		}

		r.logger.Debug("event folded",
			"order_id", order.ID,
			"kind", event.Kind(),
			"time", event.At(),
			"machine_state", res.State,
			"order_state", order.State,
			"action", order.Action,
		)
	}
	return order
}

func (r *Reducer) apply(order *domain.Order, event domain.Event, res statemachine.Result) {
	if id, ok := domain.EventOrderID(event); ok && id != "" {
		order.ID = id
	}

	switch ev := event.(type) {
	case domain.ItemAdded:
		order.Items = append(order.Items, ev.ItemID)

	case domain.ItemDeleted:
		switch res.State {
		case domain.StateInProgress:
			if i := slices.Index(order.Items, ev.ItemID); i >= 0 {
				order.Items = slices.Delete(order.Items, i, i+1)
			}
		case domain.StatePayDiff:
			order.State = domain.StatePayDiff
		default:
			order.State = domain.StateFailed
		}

	case domain.OrderPaid:
		if res.Actions.Contains(domain.ActionPrepareOrder) {
			order.State = domain.StatePayed
			order.Action = domain.ActionPrepareOrder
		}
		method := ev.PaymentMethod
		order.PaymentMethod = &method
		order.Amount = ev.Amount

	case domain.OrderDetailsAdded:
		method := ev.DeliveryMethod
		order.DeliveryMethod = &method
		if ev.DeliveryAddress != nil {
			addr := *ev.DeliveryAddress
			order.Address = &addr
		}
		if order.CustomerID == nil {
			cust := ev.CustomerID
			order.CustomerID = &cust
		}

	case domain.OrderSent:
		settle(order, res.State, domain.StateSent)

	case domain.OrderDelivered:
		settle(order, res.State, domain.StateDelivered)

	case domain.OrderDeliveryFailed:
		if res.Actions.Contains(domain.ActionContactCustomer) {
			order.Action = domain.ActionContactCustomer
		}
		if res.State == domain.StateDeliveryFailed {
			order.State = domain.StateDeliveryFailed
		} else {
			order.State = domain.StateFailed
			order.Action = domain.ActionCheckOrder
		}

	case domain.CustomerAdded:
		if order.Address == nil {
			addr := ev.Address
			order.Address = &addr
		}
		cust := ev.CustomerID
		order.CustomerID = &cust
	}
}

// settle moves the order to want when the machine reached it, otherwise flags the
// order for a manual check.
func settle(order *domain.Order, reached, want domain.State) {
	if reached == want {
		order.State = want
		order.Action = domain.ActionNone
		return
	}
	order.State = domain.StateFailed
	order.Action = domain.ActionCheckOrder
}
