package eventcodec

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/order-replay/internal/domain"
	"github.com/josh-kwaku/order-replay/internal/testutil"
)

func TestEncodeDecode_FixtureHistory(t *testing.T) {
	for _, ev := range append(testutil.StoredEvents(), testutil.DeliveryFailed(8)) {
		t.Run(string(ev.Kind()), func(t *testing.T) {
			env, err := Encode(ev)
			require.NoError(t, err)
			assert.Equal(t, ev.Kind(), env.Kind)
			assert.Equal(t, ev.At(), env.Time)

			back, err := Decode(env)
			require.NoError(t, err)

			if paid, ok := ev.(domain.OrderPaid); ok {
				gotPaid := back.(domain.OrderPaid)
				assert.True(t, paid.Amount.Equal(gotPaid.Amount))
				assert.Equal(t, paid.PaymentMethod, gotPaid.PaymentMethod)
				assert.Equal(t, paid.OrderID, gotPaid.OrderID)
				return
			}
			assert.Equal(t, ev, back)
		})
	}
}

func TestEncode_CustomerAddedHasNoOrderID(t *testing.T) {
	env, err := Encode(testutil.StoredEvents()[4])
	require.NoError(t, err)
	assert.Equal(t, domain.EventKindCustomerAdded, env.Kind)
	assert.Empty(t, env.OrderID)

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "order_id")
}

func TestEncode_RejectsAmountFinerThanColumn(t *testing.T) {
	_, err := Encode(domain.OrderPaid{
		OrderID:       "o-1",
		PaymentMethod: domain.PaymentMethodVisa,
		Amount:        decimal.RequireFromString("1.23456"),
		Time:          1,
	})
	require.ErrorIs(t, err, domain.ErrInvalidEvent)
}

func TestDecode_DetailsWithoutAddress(t *testing.T) {
	env := Envelope{
		Kind:    domain.EventKindOrderDetailsAdded,
		OrderID: "o-1",
		Time:    5,
		Payload: json.RawMessage(`{"delivery_method":"UPS","customer_id":"c-1"}`),
	}

	ev, err := Decode(env)
	require.NoError(t, err)
	details := ev.(domain.OrderDetailsAdded)
	assert.Nil(t, details.DeliveryAddress)
	assert.Equal(t, domain.DeliveryMethodUPS, details.DeliveryMethod)
}

func TestDecode_AmountFromJSONNumberOrString(t *testing.T) {
	for _, raw := range []string{`{"payment_method":"VISA","amount":345}`, `{"payment_method":"VISA","amount":"345.00"}`} {
		ev, err := Decode(Envelope{Kind: domain.EventKindOrderPaid, OrderID: "o-1", Time: 1, Payload: json.RawMessage(raw)})
		require.NoError(t, err, raw)
		assert.True(t, testutil.PaidAmount.Equal(ev.(domain.OrderPaid).Amount), raw)
	}
}

func TestDecode_AmountAtColumnScale(t *testing.T) {
	for _, raw := range []string{`"1.2345"`, `"1.23450"`, `1.5`} {
		ev, err := Decode(Envelope{
			Kind:    domain.EventKindOrderPaid,
			OrderID: "o-1",
			Time:    1,
			Payload: json.RawMessage(`{"payment_method":"VISA","amount":` + raw + `}`),
		})
		require.NoError(t, err, raw)
		amount := ev.(domain.OrderPaid).Amount
		assert.True(t, amount.Equal(amount.Round(4)), raw)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     Envelope
		wantErr error
	}{
		{
			name:    "unknown kind",
			env:     Envelope{Kind: "OrderCancelled", Payload: emptyPayload},
			wantErr: domain.ErrUnknownEventKind,
		},
		{
			name:    "malformed payload",
			env:     Envelope{Kind: domain.EventKindItemAdded, Payload: json.RawMessage(`{"item_id":`)},
			wantErr: domain.ErrInvalidEvent,
		},
		{
			name:    "missing item id",
			env:     Envelope{Kind: domain.EventKindItemDeleted, Payload: emptyPayload},
			wantErr: domain.ErrInvalidEvent,
		},
		{
			name:    "unknown payment method",
			env:     Envelope{Kind: domain.EventKindOrderPaid, Payload: json.RawMessage(`{"payment_method":"CASH","amount":1}`)},
			wantErr: domain.ErrInvalidEvent,
		},
		{
			name:    "negative amount",
			env:     Envelope{Kind: domain.EventKindOrderPaid, Payload: json.RawMessage(`{"payment_method":"VISA","amount":-1}`)},
			wantErr: domain.ErrInvalidEvent,
		},
		{
			name:    "amount finer than four decimals",
			env:     Envelope{Kind: domain.EventKindOrderPaid, Payload: json.RawMessage(`{"payment_method":"VISA","amount":"1.23456"}`)},
			wantErr: domain.ErrInvalidEvent,
		},
		{
			name:    "unknown delivery method",
			env:     Envelope{Kind: domain.EventKindOrderDetailsAdded, Payload: json.RawMessage(`{"delivery_method":"DHL"}`)},
			wantErr: domain.ErrInvalidEvent,
		},
		{
			name:    "unknown reason code",
			env:     Envelope{Kind: domain.EventKindOrderDeliveryFailed, Payload: json.RawMessage(`{"reason":{"code":"eaten"}}`)},
			wantErr: domain.ErrInvalidEvent,
		},
		{
			name:    "customer without country",
			env:     Envelope{Kind: domain.EventKindCustomerAdded, Payload: json.RawMessage(`{"customer_id":"c","address":{"street":"x"}}`)},
			wantErr: domain.ErrInvalidEvent,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.env)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestDecodeAll_ReportsIndex(t *testing.T) {
	_, err := DecodeAll([]Envelope{
		{Kind: domain.EventKindOrderSent, OrderID: "o", Time: 1},
		{Kind: "Nope"},
	})
	require.ErrorIs(t, err, domain.ErrUnknownEventKind)
	assert.Contains(t, err.Error(), "event 1")
}
