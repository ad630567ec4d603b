package testutil

import (
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/order-replay/internal/domain"
)

const (
	OrderID    domain.OrderID    = "1234"
	CustomerID domain.CustomerID = "765432"
	// DetailsCustomerID is the customer named by OrderDetailsAdded in the fixtures.
	DetailsCustomerID domain.CustomerID = "54321"
)

var (
	CustomerAddress = domain.Address{Street: "Taagevej", HouseNumber: 43, Zip: 4600, Country: domain.CountryDK}
	DeliveryAddress = domain.Address{Street: "Karisevej", HouseNumber: 43, Zip: 4690, Country: domain.CountryDK}
	PaidAmount      = decimal.NewFromInt(345)
)

// StoredEvents is the unsorted history of an order that has been paid and sent,
// as an event store would hand it back.
func StoredEvents() []domain.Event {
	return []domain.Event{
		domain.ItemAdded{ItemID: "1234", OrderID: OrderID, Time: 1},
		domain.ItemAdded{ItemID: "2345", OrderID: OrderID, Time: 2},
		domain.ItemAdded{ItemID: "3456", OrderID: OrderID, Time: 3},
		domain.ItemDeleted{ItemID: "3456", OrderID: OrderID, Time: 4},
		domain.CustomerAdded{
			CustomerID: CustomerID,
			FirstName:  "Steen",
			LastName:   "Larsen",
			Address:    CustomerAddress,
			Time:       0,
		},
		OrderDetails(&DeliveryAddress, 5),
		domain.OrderPaid{OrderID: OrderID, PaymentMethod: domain.PaymentMethodVisa, Amount: PaidAmount, Time: 6},
		domain.OrderSent{OrderID: OrderID, Time: 7},
	}
}

func OrderDetails(addr *domain.Address, at uint64) domain.OrderDetailsAdded {
	return domain.OrderDetailsAdded{
		OrderID:         OrderID,
		DeliveryMethod:  domain.DeliveryMethodGLS,
		DeliveryAddress: addr,
		CustomerID:      DetailsCustomerID,
		Time:            at,
	}
}

func Delivered(at uint64) domain.OrderDelivered {
	return domain.OrderDelivered{OrderID: OrderID, Time: at}
}

func DeliveryFailed(at uint64) domain.OrderDeliveryFailed {
	return domain.OrderDeliveryFailed{
		OrderID: OrderID,
		Reason:  domain.FailureReason{Code: domain.ReasonCodePackageLost, Message: "Package went into the sea"},
		Time:    at,
	}
}

// DeliveredHistory is StoredEvents followed by a successful delivery.
func DeliveredHistory() []domain.Event {
	return append(StoredEvents(), Delivered(8))
}
