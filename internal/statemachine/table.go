// Package statemachine maps an order's lifecycle state and an incoming event kind to
// the next state and the actions that become permitted.
package statemachine

import (
	"fmt"
	"slices"

	"github.com/josh-kwaku/order-replay/internal/domain"
)

// Actions is the set of actions a transition permits.
type Actions []domain.Action

func (a Actions) Contains(action domain.Action) bool {
	return slices.Contains(a, action)
}

type Result struct {
	State   domain.State
	Actions Actions
}

type key struct {
	from domain.State
	kind domain.EventKind
}

// Table is an immutable (state, event kind) -> Result lookup. Pairs not present in
// the table resolve to Failed with no actions.
type Table struct {
	entries map[key]Result
}

// Row declares, for one event kind, the result of that event in each prior state.
type Row struct {
	Kind domain.EventKind
	From map[domain.State]Result
}

func NewTable(rows []Row) *Table {
	t := &Table{entries: make(map[key]Result, len(rows)*len(domain.States()))}
	for _, row := range rows {
		for from, res := range row.From {
			t.entries[key{from: from, kind: row.Kind}] = Result{
				State:   res.State,
				Actions: slices.Clone(res.Actions),
			}
		}
	}
	return t
}

func (t *Table) Lookup(from domain.State, kind domain.EventKind) Result {
	res, ok := t.entries[key{from: from, kind: kind}]
	if !ok {
		return failed
	}
	return Result{State: res.State, Actions: slices.Clone(res.Actions)}
}

// Validate reports the first (state, kind) pair the table does not declare.
func (t *Table) Validate() error {
	for _, kind := range domain.EventKinds() {
		for _, from := range domain.States() {
			if _, ok := t.entries[key{from: from, kind: kind}]; !ok {
				return fmt.Errorf("Validate: no transition for %s in state %s", kind, from)
			}
		}
	}
	return nil
}

var failed = Result{State: domain.StateFailed, Actions: Actions{}}

func to(state domain.State, actions ...domain.Action) Result {
	if actions == nil {
		actions = Actions{}
	}
	return Result{State: state, Actions: actions}
}

// DefaultRows is the order lifecycle transition table.
func DefaultRows() []Row {
	editable := to(domain.StateInProgress, domain.ActionAddItem, domain.ActionDeleteItem)
	f := failed

	return []Row{
		{Kind: domain.EventKindItemAdded, From: map[domain.State]Result{
			domain.StateEmpty:          editable,
			domain.StateInProgress:     editable,
			domain.StatePayed:          to(domain.StatePayDiff, domain.ActionPay),
			domain.StatePayDiff:        to(domain.StatePayDiff, domain.ActionPay),
			domain.StateSent:           f,
			domain.StateDelivered:      f,
			domain.StateDeliveryFailed: f,
			domain.StateFailed:         f,
		}},
		{Kind: domain.EventKindItemDeleted, From: map[domain.State]Result{
			domain.StateEmpty:          to(domain.StateFailed, domain.ActionAddItem),
			domain.StateInProgress:     editable,
			domain.StatePayed:          to(domain.StatePayed, domain.ActionRefundDiff),
			domain.StatePayDiff:        to(domain.StatePayDiff, domain.ActionPay),
			domain.StateSent:           f,
			domain.StateDelivered:      f,
			domain.StateDeliveryFailed: f,
			domain.StateFailed:         f,
		}},
		{Kind: domain.EventKindOrderPaid, From: map[domain.State]Result{
			domain.StateEmpty:          f,
			domain.StateInProgress:     to(domain.StatePayed),
			domain.StatePayed:          f,
			domain.StatePayDiff:        to(domain.StatePayed),
			domain.StateSent:           f,
			domain.StateDelivered:      f,
			domain.StateDeliveryFailed: f,
			domain.StateFailed:         f,
		}},
		{Kind: domain.EventKindOrderDetailsAdded, From: map[domain.State]Result{
			domain.StateEmpty:          editable,
			domain.StateInProgress:     editable,
			domain.StatePayed:          f,
			domain.StatePayDiff:        f,
			domain.StateSent:           f,
			domain.StateDelivered:      f,
			domain.StateDeliveryFailed: f,
			domain.StateFailed:         f,
		}},
		{Kind: domain.EventKindOrderSent, From: map[domain.State]Result{
			domain.StateEmpty:          f,
			domain.StateInProgress:     f,
			domain.StatePayed:          to(domain.StateSent),
			domain.StatePayDiff:        f,
			domain.StateSent:           f,
			domain.StateDelivered:      f,
			domain.StateDeliveryFailed: f,
			domain.StateFailed:         f,
		}},
		{Kind: domain.EventKindOrderDelivered, From: map[domain.State]Result{
			domain.StateEmpty:          f,
			domain.StateInProgress:     f,
			domain.StatePayed:          f,
			domain.StatePayDiff:        f,
			domain.StateSent:           to(domain.StateDelivered),
			domain.StateDelivered:      f,
			domain.StateDeliveryFailed: f,
			domain.StateFailed:         f,
		}},
		{Kind: domain.EventKindOrderDeliveryFailed, From: map[domain.State]Result{
			domain.StateEmpty:          f,
			domain.StateInProgress:     f,
			domain.StatePayed:          f,
			domain.StatePayDiff:        f,
			domain.StateSent:           to(domain.StateDeliveryFailed, domain.ActionContactCustomer),
			domain.StateDelivered:      f,
			domain.StateDeliveryFailed: f,
			domain.StateFailed:         f,
		}},
		{Kind: domain.EventKindCustomerAdded, From: map[domain.State]Result{
			domain.StateEmpty:          editable,
			domain.StateInProgress:     editable,
			domain.StatePayed:          f,
			domain.StatePayDiff:        f,
			domain.StateSent:           f,
			domain.StateDelivered:      f,
			domain.StateDeliveryFailed: f,
			domain.StateFailed:         f,
		}},
	}
}

func DefaultTable() *Table {
	return NewTable(DefaultRows())
}
