package domain

import "github.com/shopspring/decimal"

type (
	OrderID    string
	ItemID     string
	CustomerID string
)

// EventKind is an event's variant tag with the payload discarded.
type EventKind string

const (
	EventKindItemAdded           EventKind = "ItemAdded"
	EventKindItemDeleted         EventKind = "ItemDeleted"
	EventKindOrderPaid           EventKind = "OrderPaid"
	EventKindOrderDetailsAdded   EventKind = "OrderDetailsAdded"
	EventKindOrderSent           EventKind = "OrderSent"
	EventKindOrderDelivered      EventKind = "OrderDelivered"
	EventKindOrderDeliveryFailed EventKind = "OrderDeliveryFailed"
	EventKindCustomerAdded       EventKind = "CustomerAdded"
)

var eventKinds = []EventKind{
	EventKindItemAdded,
	EventKindItemDeleted,
	EventKindOrderPaid,
	EventKindOrderDetailsAdded,
	EventKindOrderSent,
	EventKindOrderDelivered,
	EventKindOrderDeliveryFailed,
	EventKindCustomerAdded,
}

// EventKinds returns every event kind in declaration order.
func EventKinds() []EventKind {
	out := make([]EventKind, len(eventKinds))
	copy(out, eventKinds)
	return out
}

func (k EventKind) IsValid() bool {
	for _, known := range eventKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Event is an immutable fact about one order. Time is a caller-assigned logical
// timestamp used only to order an order's events.
type Event interface {
	Kind() EventKind
	At() uint64
}

type ItemAdded struct {
	ItemID  ItemID
	OrderID OrderID
	Time    uint64
}

func (e ItemAdded) Kind() EventKind { return EventKindItemAdded }
func (e ItemAdded) At() uint64      { return e.Time }

type ItemDeleted struct {
	ItemID  ItemID
	OrderID OrderID
	Time    uint64
}

func (e ItemDeleted) Kind() EventKind { return EventKindItemDeleted }
func (e ItemDeleted) At() uint64      { return e.Time }

type OrderPaid struct {
	OrderID       OrderID
	PaymentMethod PaymentMethod
	Amount        decimal.Decimal
	Time          uint64
}

func (e OrderPaid) Kind() EventKind { return EventKindOrderPaid }
func (e OrderPaid) At() uint64      { return e.Time }

type OrderDetailsAdded struct {
	OrderID         OrderID
	DeliveryMethod  DeliveryMethod
	DeliveryAddress *Address
	CustomerID      CustomerID
	Time            uint64
}

func (e OrderDetailsAdded) Kind() EventKind { return EventKindOrderDetailsAdded }
func (e OrderDetailsAdded) At() uint64      { return e.Time }

type OrderSent struct {
	OrderID OrderID
	Time    uint64
}

func (e OrderSent) Kind() EventKind { return EventKindOrderSent }
func (e OrderSent) At() uint64      { return e.Time }

type OrderDelivered struct {
	OrderID OrderID
	Time    uint64
}

func (e OrderDelivered) Kind() EventKind { return EventKindOrderDelivered }
func (e OrderDelivered) At() uint64      { return e.Time }

type OrderDeliveryFailed struct {
	OrderID OrderID
	Reason  FailureReason
	Time    uint64
}

func (e OrderDeliveryFailed) Kind() EventKind { return EventKindOrderDeliveryFailed }
func (e OrderDeliveryFailed) At() uint64      { return e.Time }

type CustomerAdded struct {
	CustomerID CustomerID
	FirstName  string
	LastName   string
	Address    Address
	Time       uint64
}

func (e CustomerAdded) Kind() EventKind { return EventKindCustomerAdded }
func (e CustomerAdded) At() uint64      { return e.Time }

// EventOrderID returns the order id an event carries. CustomerAdded carries none.
func EventOrderID(e Event) (OrderID, bool) {
	switch ev := e.(type) {
	case ItemAdded:
		return ev.OrderID, true
	case ItemDeleted:
		return ev.OrderID, true
	case OrderPaid:
		return ev.OrderID, true
	case OrderDetailsAdded:
		return ev.OrderID, true
	case OrderSent:
		return ev.OrderID, true
	case OrderDelivered:
		return ev.OrderID, true
	case OrderDeliveryFailed:
		return ev.OrderID, true
	}
	return "", false
}
