package repository

import (
	"context"
	"errors"

	"comanda-system/internal/domain"
)

var (
	ErrComandaNotFound = errors.New("comanda no encontrada")
	ErrComandaClosed   = errors.New("la comanda ya fue pagada")
)

type SettlementRepositoryInterface interface {
	// CreateComandaTx persists a comanda with its items in one transaction
	// and returns the stored detail (server-assigned id, created-at).
	CreateComandaTx(ctx context.Context, tableNumber int, items []domain.LineItem) (domain.OrderDetail, error)

	// OpenComandaByTable returns the comanda currently open at a table, or
	// nil when the table has none.
	OpenComandaByTable(ctx context.Context, tableNumber int) (*domain.OrderDetail, error)

	// RecordPaymentTx records the payment and closes the comanda in one
	// transaction. ErrComandaNotFound / ErrComandaClosed are the expected
	// rejections.
	RecordPaymentTx(ctx context.Context, commit domain.CommitRequest) (int64, error)

	// OpenTableTotals aggregates per-table totals of all open comandas,
	// one entry per occupied table, sorted by table number.
	OpenTableTotals(ctx context.Context) ([]domain.TableTotal, error)

	// History lists settled payments, newest first, honoring the filter.
	History(ctx context.Context, filter domain.HistoryFilter) ([]domain.PaymentRecord, error)
}
