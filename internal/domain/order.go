package domain

import (
	"slices"

	"github.com/shopspring/decimal"
)

type State string

const (
	StateEmpty          State = "empty"
	StateInProgress     State = "in_progress"
	StatePayed          State = "payed"
	StatePayDiff        State = "pay_diff"
	StateSent           State = "sent"
	StateDelivered      State = "delivered"
	StateDeliveryFailed State = "delivery_failed"
	StateFailed         State = "failed"
)

var states = []State{
	StateEmpty,
	StateInProgress,
	StatePayed,
	StatePayDiff,
	StateSent,
	StateDelivered,
	StateDeliveryFailed,
	StateFailed,
}

// States returns every lifecycle state in declaration order.
func States() []State {
	out := make([]State, len(states))
	copy(out, states)
	return out
}

func (s State) IsValid() bool {
	return slices.Contains(states, s)
}

type Action string

const (
	ActionNone            Action = "none"
	ActionAddItem         Action = "add_item"
	ActionDeleteItem      Action = "delete_item"
	ActionPay             Action = "pay"
	ActionRefundDiff      Action = "refund_diff"
	ActionContactCustomer Action = "contact_customer"
	ActionPrepareOrder    Action = "prepare_order"
	ActionCheckOrder      Action = "check_order"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionNone, ActionAddItem, ActionDeleteItem, ActionPay, ActionRefundDiff,
		ActionContactCustomer, ActionPrepareOrder, ActionCheckOrder:
		return true
	}
	return false
}

// Order is the snapshot derived from an order's events. It is only ever changed by
// folding events into it.
type Order struct {
	ID             OrderID
	State          State
	PaymentMethod  *PaymentMethod
	Amount         decimal.Decimal
	DeliveryMethod *DeliveryMethod
	Items          []ItemID
	Address        *Address
	CustomerID     *CustomerID
	Action         Action
}

func NewOrder(id OrderID) Order {
	return Order{
		ID:     id,
		State:  StateEmpty,
		Items:  []ItemID{},
		Amount: decimal.Zero,
		Action: ActionNone,
	}
}

// Clone returns a copy that shares no mutable memory with o.
func (o Order) Clone() Order {
	c := o
	c.Items = slices.Clone(o.Items)
	if c.Items == nil {
		c.Items = []ItemID{}
	}
	if o.PaymentMethod != nil {
		pm := *o.PaymentMethod
		c.PaymentMethod = &pm
	}
	if o.DeliveryMethod != nil {
		dm := *o.DeliveryMethod
		c.DeliveryMethod = &dm
	}
	if o.Address != nil {
		addr := *o.Address
		c.Address = &addr
	}
	if o.CustomerID != nil {
		cust := *o.CustomerID
		c.CustomerID = &cust
	}
	return c
}
