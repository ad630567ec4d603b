package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/josh-kwaku/order-replay/internal/auth"
	"github.com/josh-kwaku/order-replay/internal/domain"
	"github.com/josh-kwaku/order-replay/internal/eventcodec"
	"github.com/josh-kwaku/order-replay/internal/logging"
	"github.com/josh-kwaku/order-replay/internal/reducer"
	"github.com/josh-kwaku/order-replay/internal/statemachine"
)

type snapshotOutput struct {
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
	Events         int                    `json:"events"`
}

func runAction(c *cli.Context) error {
	envs, err := readEnvelopes(c.String("file"), c.App.Reader)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	events, err := eventcodec.DecodeAll(envs)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	orderID := domain.OrderID(c.String("order"))
	if orderID == "" {
		orderID = firstOrderID(events)
	}

	r := reducer.New(statemachine.DefaultTable(), logging.FromContext(c.Context))
	order, machineState := r.Replay(orderID, events)

	out := snapshotOutput{
		ID:             order.ID,
		State:          order.State,
		Action:         order.Action,
		PaymentMethod:  order.PaymentMethod,
		Amount:         order.Amount,
		DeliveryMethod: order.DeliveryMethod,
		Items:          order.Items,
		Address:        order.Address,
		CustomerID:     order.CustomerID,
		MachineState:   machineState,
		Events:         len(events),
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readEnvelopes(path string, stdin io.Reader) ([]eventcodec.Envelope, error) {
	var src io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("readEnvelopes: %w", err)
		}
		defer f.Close()
		src = f
	}

	var envs []eventcodec.Envelope
	if err := json.NewDecoder(src).Decode(&envs); err != nil {
		return nil, fmt.Errorf("readEnvelopes: %w", err)
	}
	return envs, nil
}

func firstOrderID(events []domain.Event) domain.OrderID {
	for _, ev := range events {
		if id, ok := domain.EventOrderID(ev); ok && id != "" {
			return id
		}
	}
	return ""
}

func tableAction(c *cli.Context) error {
	table := statemachine.DefaultTable()
	if err := table.Validate(); err != nil {
		return fmt.Errorf("table: %w", err)
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FROM\tEVENT\tTO\tACTIONS")
	for _, from := range domain.States() {
		for _, kind := range domain.EventKinds() {
			res := table.Lookup(from, kind)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%v\n", from, kind, res.State, []domain.Action(res.Actions))
		}
	}
	return tw.Flush()
}

func tokenAction(c *cli.Context) error {
	role := auth.Role(c.String("role"))
	token, err := auth.GenerateToken(c.String("subject"), role, c.String("secret"), c.Duration("ttl"))
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	_, err = fmt.Fprintln(c.App.Writer, token)
	return err
}
