package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Push events carry no schema guarantee from the channel itself, so every
// inbound payload is decoded into an explicit variant and validated before
// it may touch station state. Anything malformed is dropped by the caller.

const (
	EventTableTotals = "table_totals"
	EventNewOrder    = "new_order"

	ControlSubscribeTotals   = "subscribe_totals"
	ControlUnsubscribeTotals = "unsubscribe_totals"
)

var (
	ErrMissingOrderID = errors.New("event is missing order_id")
	ErrBadTableNumber = errors.New("event has a non-positive table number")
)

// TableTotal is one entry of a totals snapshot. Status may be omitted by the
// server; the ledger derives it from the total in that case.
type TableTotal struct {
	TableID int         `json:"table_id"`
	Total   int64       `json:"total"`
	Status  TableStatus `json:"status,omitempty"`
}

// TableTotalsEvent is a full authoritative snapshot of every occupied table.
// Tables absent from it are free; the ledger rebuilds its whole view from it.
type TableTotalsEvent struct {
	Tables []TableTotal `json:"tables"`
}

func (e TableTotalsEvent) Validate() error {
	for _, t := range e.Tables {
		if t.TableID <= 0 {
			return ErrBadTableNumber
		}
		if t.Total < 0 {
			return fmt.Errorf("table %d: negative total %d", t.TableID, t.Total)
		}
	}
	return nil
}

// NewOrderEvent announces a freshly created comanda to kitchen stations.
type NewOrderEvent struct {
	Order
}

func (e NewOrderEvent) Validate() error {
	if e.OrderID == 0 {
		return ErrMissingOrderID
	}
	if e.TableNumber <= 0 {
		return ErrBadTableNumber
	}
	if len(e.Items) == 0 {
		return fmt.Errorf("order %d has no items", e.OrderID)
	}
	for _, it := range e.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("order %d: item %q has quantity %d", e.OrderID, it.Name, it.Quantity)
		}
		if it.UnitPrice < 0 {
			return fmt.Errorf("order %d: item %q has negative price", e.OrderID, it.Name)
		}
	}
	return nil
}

// ControlMessage is a client-to-server intent on the control queue.
type ControlMessage struct {
	Action  string `json:"action"`
	Station string `json:"station"`
}

func DecodeTableTotals(body []byte) (TableTotalsEvent, error) {
	var ev TableTotalsEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return TableTotalsEvent{}, fmt.Errorf("decode table totals: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return TableTotalsEvent{}, err
	}
	return ev, nil
}

func DecodeNewOrder(body []byte) (NewOrderEvent, error) {
	var ev NewOrderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return NewOrderEvent{}, fmt.Errorf("decode new order: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return NewOrderEvent{}, err
	}
	return ev, nil
}
