package domain

import "time"

// All money is in minor currency units (whole pesos), never floats.

type OrderState string

const (
	OrderPreparing OrderState = "preparing"
	OrderDone      OrderState = "done"
)

type PaymentMethod string

const (
	MethodDebit  PaymentMethod = "debito"
	MethodCredit PaymentMethod = "credito"
	MethodCash   PaymentMethod = "efectivo"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodDebit || m == MethodCredit || m == MethodCash
}

type TableStatus string

// TableSettled only arrives in server-sent snapshots; the ledger passes it
// through unchanged. Nothing in this repo emits it: the settlement snapshot
// covers open comandas only, and a locally settled table goes straight to
// free.
const (
	TableFree     TableStatus = "libre"
	TableOccupied TableStatus = "abierta"
	TableSettled  TableStatus = "pagada"
)

type LineItem struct {
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	UnitPrice     int64  `json:"unit_price"`
	Subtotal      int64  `json:"subtotal"`
	CustomerLabel string `json:"customer_label,omitempty"`
	Note          string `json:"note,omitempty"`
}

// Order is a comanda: one table, one or more line items.
type Order struct {
	OrderID     int64      `json:"order_id"`
	TableNumber int        `json:"table_number"`
	Items       []LineItem `json:"items"`
}

// RawTotal is the sum of line subtotals, the basis for tip computation.
func (o Order) RawTotal() int64 {
	var total int64
	for _, it := range o.Items {
		total += it.Subtotal
	}
	return total
}

// TableEntry is one cell of the cashier grid.
type TableEntry struct {
	TableID int         `json:"table_id"`
	Total   int64       `json:"total"`
	Status  TableStatus `json:"status"`
}

// QueuedOrder is an Order as held by the kitchen queue. ArrivedAt is stamped
// locally at first observation and is display-only, never sent upstream.
type QueuedOrder struct {
	Order
	ArrivedAt time.Time
	State     OrderState
}
