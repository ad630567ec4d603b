package statemachine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/order-replay/internal/domain"
)

const (
	E  = domain.StateEmpty
	IP = domain.StateInProgress
	P  = domain.StatePayed
	PD = domain.StatePayDiff
	S  = domain.StateSent
	D  = domain.StateDelivered
	DF = domain.StateDeliveryFailed
	F  = domain.StateFailed
)

var columns = []domain.State{E, IP, P, PD, S, D, DF, F}

type cell struct {
	state   domain.State
	actions []domain.Action
}

func c(state domain.State, actions ...domain.Action) cell {
	return cell{state: state, actions: actions}
}

var (
	addDel = []domain.Action{domain.ActionAddItem, domain.ActionDeleteItem}
	pay    = domain.ActionPay
)

// Rows are event kinds, columns are prior states in the order of columns.
var canonical = map[domain.EventKind][]cell{
	domain.EventKindItemAdded:           {c(IP, addDel...), c(IP, addDel...), c(PD, pay), c(PD, pay), c(F), c(F), c(F), c(F)},
	domain.EventKindItemDeleted:         {c(F, domain.ActionAddItem), c(IP, addDel...), c(P, domain.ActionRefundDiff), c(PD, pay), c(F), c(F), c(F), c(F)},
	domain.EventKindOrderPaid:           {c(F), c(P), c(F), c(P), c(F), c(F), c(F), c(F)},
	domain.EventKindOrderDetailsAdded:   {c(IP, addDel...), c(IP, addDel...), c(F), c(F), c(F), c(F), c(F), c(F)},
	domain.EventKindOrderSent:           {c(F), c(F), c(S), c(F), c(F), c(F), c(F), c(F)},
	domain.EventKindOrderDelivered:      {c(F), c(F), c(F), c(F), c(D), c(F), c(F), c(F)},
	domain.EventKindOrderDeliveryFailed: {c(F), c(F), c(F), c(F), c(DF, domain.ActionContactCustomer), c(F), c(F), c(F)},
	domain.EventKindCustomerAdded:       {c(IP, addDel...), c(IP, addDel...), c(F), c(F), c(F), c(F), c(F), c(F)},
}

func TestDefaultTable_MatchesCanonical(t *testing.T) {
	table := DefaultTable()
	require.Len(t, canonical, len(domain.EventKinds()))

	for kind, row := range canonical {
		require.Len(t, row, len(columns), "row %s", kind)
		for i, from := range columns {
			want := row[i]
			t.Run(fmt.Sprintf("%s from %s", kind, from), func(t *testing.T) {
				got := table.Lookup(from, kind)
				assert.Equal(t, want.state, got.State)
				assert.ElementsMatch(t, want.actions, []domain.Action(got.Actions))
			})
		}
	}
}

func TestDefaultTable_IsTotal(t *testing.T) {
	require.NoError(t, DefaultTable().Validate())
}

func TestTable_ValidateReportsGap(t *testing.T) {
	rows := DefaultRows()
	delete(rows[0].From, domain.StateSent)

	err := NewTable(rows).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(domain.EventKindItemAdded))
	assert.Contains(t, err.Error(), string(domain.StateSent))
}

func TestTable_UndeclaredPairFallsBackToFailed(t *testing.T) {
	table := NewTable(nil)

	got := table.Lookup(domain.StateInProgress, domain.EventKindItemAdded)
	assert.Equal(t, domain.StateFailed, got.State)
	assert.Empty(t, got.Actions)

	got = table.Lookup(domain.State("bogus"), domain.EventKind("Bogus"))
	assert.Equal(t, domain.StateFailed, got.State)
}

func TestTable_LookupReturnsCopies(t *testing.T) {
	table := DefaultTable()

	first := table.Lookup(domain.StateEmpty, domain.EventKindItemAdded)
	first.Actions[0] = domain.ActionCheckOrder

	second := table.Lookup(domain.StateEmpty, domain.EventKindItemAdded)
	assert.Equal(t, domain.ActionAddItem, second.Actions[0])
}

func TestFailedIsASink(t *testing.T) {
	table := DefaultTable()
	for _, kind := range domain.EventKinds() {
		got := table.Lookup(domain.StateFailed, kind)
		assert.Equal(t, domain.StateFailed, got.State, kind)
		assert.Empty(t, got.Actions, kind)
	}
}
