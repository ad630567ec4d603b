package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/order-replay/internal/domain"
	"github.com/josh-kwaku/order-replay/internal/metrics"
	"github.com/josh-kwaku/order-replay/internal/reducer"
	"github.com/josh-kwaku/order-replay/internal/repository"
	"github.com/josh-kwaku/order-replay/internal/statemachine"
	fixtures "github.com/josh-kwaku/order-replay/internal/testutil"
)

func setupOrderService(t *testing.T, db *sql.DB) (*OrderService, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	svc := NewOrderService(
		repository.NewOrderEventRepository(db),
		repository.NewOrderSnapshotRepository(db),
		repository.NewActionCommandRepository(db),
		reducer.New(statemachine.DefaultTable(), slog.Default()),
		m,
		db,
	)
	return svc, m
}

func recordAll(t *testing.T, svc *OrderService, events []domain.Event) *domain.Snapshot {
	t.Helper()
	var snap *domain.Snapshot
	for _, ev := range events {
		var err error
		snap, err = svc.RecordEvent(context.Background(), RecordEventRequest{OrderID: fixtures.OrderID, Event: ev})
		require.NoError(t, err, "recording %s at %d", ev.Kind(), ev.At())
	}
	return snap
}

func assertSameOrder(t *testing.T, want, got domain.Order) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.State, got.State)
	assert.Equal(t, want.Action, got.Action)
	assert.Equal(t, want.Items, got.Items)
	assert.Equal(t, want.PaymentMethod, got.PaymentMethod)
	assert.Equal(t, want.DeliveryMethod, got.DeliveryMethod)
	assert.Equal(t, want.Address, got.Address)
	assert.Equal(t, want.CustomerID, got.CustomerID)
	assert.True(t, want.Amount.Equal(got.Amount), "amount want %s got %s", want.Amount, got.Amount)
}

func TestRecordEvent_DeliveredHistory(t *testing.T) {
	db := fixtures.SetupTestDB(t)
	svc, m := setupOrderService(t, db)

	snap := recordAll(t, svc, fixtures.DeliveredHistory())

	want, wantMachine := reducer.New(statemachine.DefaultTable(), nil).Replay(fixtures.OrderID, fixtures.DeliveredHistory())
	assertSameOrder(t, want, snap.Order)
	assert.Equal(t, domain.StateDelivered, snap.Order.State)
	assert.Equal(t, wantMachine, snap.MachineState)
	assert.Equal(t, 9, snap.EventCount)
	assert.Equal(t, uint64(8), snap.LastEventTime)

	stored, err := svc.GetOrder(context.Background(), fixtures.OrderID)
	require.NoError(t, err)
	assertSameOrder(t, snap.Order, stored.Order)
	assert.Equal(t, snap.MachineState, stored.MachineState)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.EventsRecorded.WithLabelValues(string(domain.EventKindItemAdded))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsRecorded.WithLabelValues(string(domain.EventKindCustomerAdded))))
}

func TestRecordEvent_AnyArrivalOrderMatchesReplay(t *testing.T) {
	db := fixtures.SetupTestDB(t)
	svc, _ := setupOrderService(t, db)

	events := append(fixtures.StoredEvents(), fixtures.DeliveryFailed(8))
	shuffled := make([]domain.Event, len(events))
	copy(shuffled, events)
	rand.New(rand.NewPCG(7, 11)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	snap := recordAll(t, svc, shuffled)

	want, _ := reducer.New(statemachine.DefaultTable(), nil).Replay(fixtures.OrderID, events)
	assertSameOrder(t, want, snap.Order)
	assert.Equal(t, domain.StateDeliveryFailed, snap.Order.State)
	assert.Equal(t, domain.ActionContactCustomer, snap.Order.Action)

	rebuilt, err := svc.RebuildOrder(context.Background(), fixtures.OrderID)
	require.NoError(t, err)
	assertSameOrder(t, snap.Order, rebuilt.Order)
	assert.Equal(t, snap.MachineState, rebuilt.MachineState)
	assert.Equal(t, len(events), rebuilt.EventCount)
}

func TestRecordEvent_ConcurrentWritersKeepEveryEvent(t *testing.T) {
	db := fixtures.SetupTestDB(t)
	svc, _ := setupOrderService(t, db)

	const writers = 8
	events := make([]domain.Event, writers)
	for i := range events {
		events[i] = domain.ItemAdded{
			ItemID:  domain.ItemID(fmt.Sprintf("item-%d", i)),
			OrderID: fixtures.OrderID,
			Time:    uint64(i + 1),
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for _, ev := range events {
		wg.Add(1)
		go func(ev domain.Event) {
			defer wg.Done()
			_, err := svc.RecordEvent(context.Background(), RecordEventRequest{OrderID: fixtures.OrderID, Event: ev})
			errs <- err
		}(ev)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := svc.GetOrder(context.Background(), fixtures.OrderID)
	require.NoError(t, err)
	assert.Equal(t, writers, stored.EventCount)
	assert.Equal(t, uint64(writers), stored.LastEventTime)

	want, wantMachine := reducer.New(statemachine.DefaultTable(), nil).Replay(fixtures.OrderID, events)
	assertSameOrder(t, want, stored.Order)
	assert.Equal(t, wantMachine, stored.MachineState)
	assert.Len(t, stored.Order.Items, writers)
}

func TestRecordEvent_AmountSurvivesSnapshot(t *testing.T) {
	db := fixtures.SetupTestDB(t)
	svc, _ := setupOrderService(t, db)
	ctx := context.Background()

	paid := func(amount string, at uint64) domain.Event {
		return domain.OrderPaid{
			OrderID:       fixtures.OrderID,
			PaymentMethod: domain.PaymentMethodVisa,
			Amount:        decimal.RequireFromString(amount),
			Time:          at,
		}
	}

	recordAll(t, svc, []domain.Event{
		domain.ItemAdded{ItemID: "a", OrderID: fixtures.OrderID, Time: 1},
		paid("1.2345", 2),
	})

	_, err := svc.RecordEvent(ctx, RecordEventRequest{OrderID: fixtures.OrderID, Event: paid("1.23456", 3)})
	require.ErrorIs(t, err, domain.ErrInvalidEvent)

	stored, err := svc.GetOrder(ctx, fixtures.OrderID)
	require.NoError(t, err)
	rebuilt, err := svc.RebuildOrder(ctx, fixtures.OrderID)
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("1.2345").Equal(stored.Order.Amount), "stored %s", stored.Order.Amount)
	assert.True(t, stored.Order.Amount.Equal(rebuilt.Order.Amount), "stored %s rebuilt %s", stored.Order.Amount, rebuilt.Order.Amount)
	assert.Equal(t, 2, rebuilt.EventCount)
}

func TestRecordEvent_EnqueuesChangedActions(t *testing.T) {
	db := fixtures.SetupTestDB(t)
	svc, _ := setupOrderService(t, db)

	recordAll(t, svc, append(fixtures.StoredEvents(), fixtures.DeliveryFailed(8)))

	cmds, err := repository.NewActionCommandRepository(db).ListByOrderID(context.Background(), fixtures.OrderID)
	require.NoError(t, err)
	require.NotEmpty(t, cmds)

	for i, c := range cmds {
		assert.NotEqual(t, domain.ActionNone, c.Action)
		assert.Equal(t, domain.ActionCommandStatusPending, c.Status)
		if i > 0 {
			assert.NotEqual(t, cmds[i-1].Action, c.Action, "consecutive commands repeat %s", c.Action)
		}
	}

	last := cmds[len(cmds)-1]
	assert.Equal(t, domain.ActionContactCustomer, last.Action)
	assert.Equal(t, domain.StateDeliveryFailed, last.State)
}

func TestRecordEvent_FailedOrderCountedOnce(t *testing.T) {
	db := fixtures.SetupTestDB(t)
	svc, m := setupOrderService(t, db)

	snap := recordAll(t, svc, []domain.Event{
		domain.ItemAdded{ItemID: "1", OrderID: fixtures.OrderID, Time: 1},
		domain.OrderSent{OrderID: fixtures.OrderID, Time: 2},
		domain.ItemAdded{ItemID: "2", OrderID: fixtures.OrderID, Time: 3},
	})

	assert.Equal(t, domain.StateFailed, snap.Order.State)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersFailed))
}

func TestRecordEvent_DuplicateIdempotencyKey(t *testing.T) {
	db := fixtures.SetupTestDB(t)
	svc, _ := setupOrderService(t, db)
	ctx := context.Background()

	key := "add-1234"
	req := RecordEventRequest{
		OrderID:        fixtures.OrderID,
		Event:          domain.ItemAdded{ItemID: "1234", OrderID: fixtures.OrderID, Time: 1},
		IdempotencyKey: &key,
	}

	_, err := svc.RecordEvent(ctx, req)
	require.NoError(t, err)

	_, err = svc.RecordEvent(ctx, req)
	require.ErrorIs(t, err, domain.ErrDuplicateEvent)

	snap, err := svc.GetOrder(ctx, fixtures.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.EventCount)
	assert.Equal(t, []domain.ItemID{"1234"}, snap.Order.Items)
}

func TestRecordEvent_RejectsEventOfAnotherOrder(t *testing.T) {
	db := fixtures.SetupTestDB(t)
	svc, _ := setupOrderService(t, db)

	_, err := svc.RecordEvent(context.Background(), RecordEventRequest{
		OrderID: fixtures.OrderID,
		Event:   domain.ItemAdded{ItemID: "1", OrderID: "9999", Time: 1},
	})
	require.ErrorIs(t, err, domain.ErrInvalidEvent)

	_, err = svc.GetOrder(context.Background(), fixtures.OrderID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRebuildOrder_UnknownOrder(t *testing.T) {
	db := fixtures.SetupTestDB(t)
	svc, _ := setupOrderService(t, db)

	_, err := svc.RebuildOrder(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListEvents_SortedByLogicalTime(t *testing.T) {
	db := fixtures.SetupTestDB(t)
	svc, _ := setupOrderService(t, db)

	recordAll(t, svc, fixtures.StoredEvents())

	events, err := svc.ListEvents(context.Background(), fixtures.OrderID)
	require.NoError(t, err)
	require.Len(t, events, 8)
	assert.Equal(t, domain.EventKindCustomerAdded, events[0].Kind())
	for i := 1; i < len(events); i++ {
		assert.LessOrEqual(t, events[i-1].At(), events[i].At())
	}
}
