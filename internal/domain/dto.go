package domain

import (
	"errors"
	"time"
)

// ErrNoOpenOrder is the explicit "table has no open comanda" result of a
// detail fetch, distinct from any transport failure.
var ErrNoOpenOrder = errors.New("mesa sin comanda abierta")

// OrderDetail is the settlement service's answer to "what is open at this
// table": the comanda plus the raw total the cashier computes tips against.
type OrderDetail struct {
	OrderID     int64      `json:"order_id"`
	TableNumber int        `json:"table_number"`
	Items       []LineItem `json:"items"`
	RawTotal    int64      `json:"raw_total"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateOrderRequest is what a waiter terminal posts to open a comanda.
type CreateOrderRequest struct {
	TableNumber int        `json:"table_number"`
	Items       []LineItem `json:"items"`
}

type CreateOrderResponse struct {
	OrderID     int64 `json:"order_id"`
	TableNumber int   `json:"table_number"`
	RawTotal    int64 `json:"raw_total"`
}

// CommitRequest is the payment-commit payload. Tendered is null unless the
// method is cash.
type CommitRequest struct {
	OrderID     int64         `json:"order_id"`
	TableNumber int           `json:"table_number"`
	RawTotal    int64         `json:"raw_total"`
	Tip         int64         `json:"tip"`
	AmountPaid  int64         `json:"amount_paid"`
	Method      PaymentMethod `json:"method"`
	Tendered    *int64        `json:"tendered"`
	Change      int64         `json:"change"`
}

// CommitResponse confirms a settled payment. TableFreed echoes the table
// that returned to free.
type CommitResponse struct {
	PaymentID  int64 `json:"payment_id"`
	OrderID    int64 `json:"order_id"`
	TableFreed int   `json:"table_freed"`
}

// PaymentRecord is one settled payment in the history listing.
type PaymentRecord struct {
	PaymentID   int64         `json:"payment_id"`
	OrderID     int64         `json:"order_id"`
	TableNumber int           `json:"table_number"`
	RawTotal    int64         `json:"raw_total"`
	Tip         int64         `json:"tip"`
	AmountPaid  int64         `json:"amount_paid"`
	Method      PaymentMethod `json:"method"`
	Tendered    *int64        `json:"tendered,omitempty"`
	Change      int64         `json:"change"`
	PaidAt      time.Time     `json:"paid_at"`
}

// HistoryFilter narrows the payment-history listing. Zero values mean
// "no filter"; Limit is capped by the service.
type HistoryFilter struct {
	From   *time.Time
	To     *time.Time
	Table  int
	Method PaymentMethod
	Limit  int
}
