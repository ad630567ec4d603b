package eventcodec

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/order-replay/internal/domain"
)

// Envelope is the serialized form of an event: the kind and logical time are kept
// outside the payload so stores can index them.
type Envelope struct {
	Kind    domain.EventKind `json:"kind"`
	OrderID domain.OrderID   `json:"order_id,omitempty"`
	Time    uint64           `json:"time"`
	Payload json.RawMessage  `json:"payload"`
}

type itemPayload struct {
	ItemID domain.ItemID `json:"item_id"`
}

type paidPayload struct {
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	Amount        decimal.Decimal      `json:"amount"`
}

type detailsPayload struct {
	DeliveryMethod  domain.DeliveryMethod `json:"delivery_method"`
	DeliveryAddress *domain.Address       `json:"delivery_address,omitempty"`
	CustomerID      domain.CustomerID     `json:"customer_id"`
}

type deliveryFailedPayload struct {
	Reason domain.FailureReason `json:"reason"`
}

type customerPayload struct {
	CustomerID domain.CustomerID `json:"customer_id"`
	FirstName  string            `json:"first_name"`
	LastName   string            `json:"last_name"`
	Address    domain.Address    `json:"address"`
}

var emptyPayload = json.RawMessage(`{}`)

// maxAmountScale matches the snapshot's NUMERIC(20, 4) amount column.
const maxAmountScale = 4

func Encode(event domain.Event) (Envelope, error) {
	env := Envelope{Kind: event.Kind(), Time: event.At()}
	if id, ok := domain.EventOrderID(event); ok {
		env.OrderID = id
	}

	var payload any
	switch ev := event.(type) {
	case domain.ItemAdded:
		payload = itemPayload{ItemID: ev.ItemID}
	case domain.ItemDeleted:
		payload = itemPayload{ItemID: ev.ItemID}
	case domain.OrderPaid:
		if !fitsAmountScale(ev.Amount) {
			return Envelope{}, fmt.Errorf("Encode: %s: %w: amount has more than 4 decimal places", env.Kind, domain.ErrInvalidEvent)
		}
		payload = paidPayload{PaymentMethod: ev.PaymentMethod, Amount: ev.Amount}
	case domain.OrderDetailsAdded:
		payload = detailsPayload{
			DeliveryMethod:  ev.DeliveryMethod,
			DeliveryAddress: ev.DeliveryAddress,
			CustomerID:      ev.CustomerID,
		}
	case domain.OrderSent, domain.OrderDelivered:
		env.Payload = emptyPayload
		return env, nil
	case domain.OrderDeliveryFailed:
		payload = deliveryFailedPayload{Reason: ev.Reason}
	case domain.CustomerAdded:
		payload = customerPayload{
			CustomerID: ev.CustomerID,
			FirstName:  ev.FirstName,
			LastName:   ev.LastName,
			Address:    ev.Address,
		}
	default:
		return Envelope{}, fmt.Errorf("Encode: %w: %T", domain.ErrUnknownEventKind, event)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("Encode: %s: %w", env.Kind, err)
	}
	env.Payload = raw
	return env, nil
}

func Decode(env Envelope) (domain.Event, error) {
	if !env.Kind.IsValid() {
		return nil, fmt.Errorf("Decode: %w: %q", domain.ErrUnknownEventKind, env.Kind)
	}

	payload := env.Payload
	if len(payload) == 0 {
		payload = emptyPayload
	}

	switch env.Kind {
	case domain.EventKindItemAdded, domain.EventKindItemDeleted:
		var p itemPayload
		if err := unmarshal(env.Kind, payload, &p); err != nil {
			return nil, err
		}
		if p.ItemID == "" {
			return nil, invalid(env.Kind, "item_id is required")
		}
		if env.Kind == domain.EventKindItemAdded {
			return domain.ItemAdded{ItemID: p.ItemID, OrderID: env.OrderID, Time: env.Time}, nil
		}
		return domain.ItemDeleted{ItemID: p.ItemID, OrderID: env.OrderID, Time: env.Time}, nil

	case domain.EventKindOrderPaid:
		var p paidPayload
		if err := unmarshal(env.Kind, payload, &p); err != nil {
			return nil, err
		}
		if !p.PaymentMethod.IsValid() {
			return nil, invalid(env.Kind, "unknown payment_method")
		}
		if p.Amount.IsNegative() {
			return nil, invalid(env.Kind, "amount must not be negative")
		}
		if !fitsAmountScale(p.Amount) {
			return nil, invalid(env.Kind, "amount has more than 4 decimal places")
		}
		return domain.OrderPaid{OrderID: env.OrderID, PaymentMethod: p.PaymentMethod, Amount: p.Amount, Time: env.Time}, nil

	case domain.EventKindOrderDetailsAdded:
		var p detailsPayload
		if err := unmarshal(env.Kind, payload, &p); err != nil {
			return nil, err
		}
		if !p.DeliveryMethod.IsValid() {
			return nil, invalid(env.Kind, "unknown delivery_method")
		}
		if p.DeliveryAddress != nil && !p.DeliveryAddress.Country.IsValid() {
			return nil, invalid(env.Kind, "unknown delivery_address.country")
		}
		return domain.OrderDetailsAdded{
			OrderID:         env.OrderID,
			DeliveryMethod:  p.DeliveryMethod,
			DeliveryAddress: p.DeliveryAddress,
			CustomerID:      p.CustomerID,
			Time:            env.Time,
		}, nil

	case domain.EventKindOrderSent:
		return domain.OrderSent{OrderID: env.OrderID, Time: env.Time}, nil

	case domain.EventKindOrderDelivered:
		return domain.OrderDelivered{OrderID: env.OrderID, Time: env.Time}, nil

	case domain.EventKindOrderDeliveryFailed:
		var p deliveryFailedPayload
		if err := unmarshal(env.Kind, payload, &p); err != nil {
			return nil, err
		}
		if !p.Reason.Code.IsValid() {
			return nil, invalid(env.Kind, "unknown reason.code")
		}
		return domain.OrderDeliveryFailed{OrderID: env.OrderID, Reason: p.Reason, Time: env.Time}, nil

	case domain.EventKindCustomerAdded:
		var p customerPayload
		if err := unmarshal(env.Kind, payload, &p); err != nil {
			return nil, err
		}
		if p.CustomerID == "" {
			return nil, invalid(env.Kind, "customer_id is required")
		}
		if !p.Address.Country.IsValid() {
			return nil, invalid(env.Kind, "unknown address.country")
		}
		return domain.CustomerAdded{
			CustomerID: p.CustomerID,
			FirstName:  p.FirstName,
			LastName:   p.LastName,
			Address:    p.Address,
			Time:       env.Time,
		}, nil
	}

	return nil, fmt.Errorf("Decode: %w: %q", domain.ErrUnknownEventKind, env.Kind)
}

func DecodeAll(envs []Envelope) ([]domain.Event, error) {
	events := make([]domain.Event, 0, len(envs))
	for i, env := range envs {
		ev, err := Decode(env)
		if err != nil {
			return nil, fmt.Errorf("DecodeAll: event %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func unmarshal(kind domain.EventKind, payload json.RawMessage, dst any) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("Decode: %s: %w: %v", kind, domain.ErrInvalidEvent, err)
	}
	return nil
}

func fitsAmountScale(amount decimal.Decimal) bool {
	return amount.Truncate(maxAmountScale).Equal(amount)
}

func invalid(kind domain.EventKind, msg string) error {
	return fmt.Errorf("Decode: %s: %w: %s", kind, domain.ErrInvalidEvent, msg)
}
