package service

import (
	"context"

	"comanda-system/internal/domain"
)

type SettlementServiceInterface interface {
	CreateComanda(ctx context.Context, req domain.CreateOrderRequest) (domain.CreateOrderResponse, error)
	OrderByTable(ctx context.Context, tableNumber int) (*domain.OrderDetail, error)
	CommitPayment(ctx context.Context, commit domain.CommitRequest) (domain.CommitResponse, error)
	History(ctx context.Context, filter domain.HistoryFilter) ([]domain.PaymentRecord, error)

	// PublishSnapshot pushes the current authoritative table totals to every
	// listening cashier station.
	PublishSnapshot(ctx context.Context) error

	// RunControlConsumer serves subscribe/unsubscribe intents from stations
	// until ctx is cancelled.
	RunControlConsumer(ctx context.Context) error
}
