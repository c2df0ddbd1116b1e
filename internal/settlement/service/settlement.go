package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"comanda-system/internal/connections/rabbitmq"
	"comanda-system/internal/domain"
	"comanda-system/internal/logger"
	"comanda-system/internal/settlement/repository"
)

var (
	ErrInvalidTable   = errors.New("numero de mesa invalido")
	ErrNoItems        = errors.New("la comanda necesita al menos un item")
	ErrInvalidPayment = errors.New("pago invalido")
	ErrTenderRequired = errors.New("falta el monto entregado en efectivo")
	ErrAmountMismatch = errors.New("el total pagado no coincide con la comanda")
)

type SettlementService struct {
	db         repository.SettlementRepositoryInterface
	rmq        *rabbitmq.Client
	log        *logger.Logger
	tableCount int
}

func NewSettlementService(db repository.SettlementRepositoryInterface, rmq *rabbitmq.Client, log *logger.Logger, tableCount int) SettlementServiceInterface {
	return &SettlementService{db: db, rmq: rmq, log: log, tableCount: tableCount}
}

// CreateComanda validates and persists a new comanda, then announces it to
// kitchen stations and refreshes the cashier totals.
func (s *SettlementService) CreateComanda(ctx context.Context, req domain.CreateOrderRequest) (domain.CreateOrderResponse, error) {
	if req.TableNumber < 1 || req.TableNumber > s.tableCount {
		return domain.CreateOrderResponse{}, ErrInvalidTable
	}
	if len(req.Items) == 0 {
		return domain.CreateOrderResponse{}, ErrNoItems
	}
	items := make([]domain.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return domain.CreateOrderResponse{}, fmt.Errorf("cantidad invalida para %q", it.Name)
		}
		if it.UnitPrice < 0 {
			return domain.CreateOrderResponse{}, fmt.Errorf("precio invalido para %q", it.Name)
		}
		// Subtotal is always recomputed server-side.
		it.Subtotal = int64(it.Quantity) * it.UnitPrice
		items = append(items, it)
	}

	detail, err := s.db.CreateComandaTx(ctx, req.TableNumber, items)
	if err != nil {
		return domain.CreateOrderResponse{}, fmt.Errorf("failed to save comanda: %w", err)
	}

	event := domain.NewOrderEvent{Order: domain.Order{
		OrderID:     detail.OrderID,
		TableNumber: detail.TableNumber,
		Items:       detail.Items,
	}}
	if err := s.publishJSON(ctx, rabbitmq.KeyNewOrder, event, detail.OrderID); err != nil {
		return domain.CreateOrderResponse{}, fmt.Errorf("failed to publish new order: %w", err)
	}
	if err := s.PublishSnapshot(ctx); err != nil {
		s.log.Error("snapshot_publish_failed", err, map[string]any{"order_id": detail.OrderID})
	}

	s.log.Info("comanda_created", map[string]any{"order_id": detail.OrderID, "table": detail.TableNumber, "raw_total": detail.RawTotal})
	return domain.CreateOrderResponse{
		OrderID:     detail.OrderID,
		TableNumber: detail.TableNumber,
		RawTotal:    detail.RawTotal,
	}, nil
}

func (s *SettlementService) OrderByTable(ctx context.Context, tableNumber int) (*domain.OrderDetail, error) {
	if tableNumber < 1 || tableNumber > s.tableCount {
		return nil, ErrInvalidTable
	}
	return s.db.OpenComandaByTable(ctx, tableNumber)
}

// CommitPayment records the settlement, closes the comanda, and pushes a
// fresh totals snapshot. Committing a comanda that is no longer open is a
// conflict, not a duplicate payment.
func (s *SettlementService) CommitPayment(ctx context.Context, commit domain.CommitRequest) (domain.CommitResponse, error) {
	if commit.OrderID == 0 || commit.TableNumber < 1 || commit.TableNumber > s.tableCount {
		return domain.CommitResponse{}, ErrInvalidPayment
	}
	if !commit.Method.Valid() || commit.RawTotal < 0 || commit.Tip < 0 || commit.AmountPaid < 0 {
		return domain.CommitResponse{}, ErrInvalidPayment
	}
	if commit.AmountPaid != commit.RawTotal+commit.Tip {
		return domain.CommitResponse{}, ErrAmountMismatch
	}
	if commit.Method == domain.MethodCash {
		if commit.Tendered == nil || *commit.Tendered < commit.AmountPaid {
			return domain.CommitResponse{}, ErrTenderRequired
		}
	} else {
		commit.Tendered = nil
		commit.Change = 0
	}

	paymentID, err := s.db.RecordPaymentTx(ctx, commit)
	if err != nil {
		return domain.CommitResponse{}, err
	}

	if err := s.PublishSnapshot(ctx); err != nil {
		s.log.Error("snapshot_publish_failed", err, map[string]any{"order_id": commit.OrderID})
	}

	s.log.Info("payment_recorded", map[string]any{
		"payment_id": paymentID, "order_id": commit.OrderID,
		"table": commit.TableNumber, "amount": commit.AmountPaid, "method": string(commit.Method),
	})
	return domain.CommitResponse{
		PaymentID:  paymentID,
		OrderID:    commit.OrderID,
		TableFreed: commit.TableNumber,
	}, nil
}

func (s *SettlementService) History(ctx context.Context, filter domain.HistoryFilter) ([]domain.PaymentRecord, error) {
	return s.db.History(ctx, filter)
}

func (s *SettlementService) PublishSnapshot(ctx context.Context) error {
	totals, err := s.db.OpenTableTotals(ctx)
	if err != nil {
		return fmt.Errorf("load table totals: %w", err)
	}
	return s.publishJSON(ctx, rabbitmq.KeyTableTotals, domain.TableTotalsEvent{Tables: totals}, 0)
}

func (s *SettlementService) publishJSON(ctx context.Context, key string, payload any, correlation int64) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	headers := amqp.Table{"x-source": "settlement-service"}
	if correlation != 0 {
		headers["x-order-id"] = correlation
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.rmq.Publish(ctx, rabbitmq.ExchangeEvents, key, body, headers)
}

// RunControlConsumer answers station intents: a subscribe gets an immediate
// authoritative snapshot so a freshly mounted cashier view never waits for
// the next change. Unsubscribes are only bookkeeping.
func (s *SettlementService) RunControlConsumer(ctx context.Context) error {
	deliveries, err := s.rmq.Consume(rabbitmq.QueueControl, "settlement-control", 10)
	if err != nil {
		return err
	}
	subscribers := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("control deliveries channel closed")
			}
			var msg domain.ControlMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil || msg.Station == "" {
				s.log.Debug("control_dropped", map[string]any{"error": "malformed control message"})
				_ = d.Ack(false)
				continue
			}
			switch msg.Action {
			case domain.ControlSubscribeTotals:
				subscribers[msg.Station] = struct{}{}
				s.log.Info("station_subscribed", map[string]any{"station": msg.Station, "subscribers": len(subscribers)})
				if err := s.PublishSnapshot(ctx); err != nil {
					s.log.Error("snapshot_publish_failed", err, map[string]any{"station": msg.Station})
				}
			case domain.ControlUnsubscribeTotals:
				delete(subscribers, msg.Station)
				s.log.Info("station_unsubscribed", map[string]any{"station": msg.Station, "subscribers": len(subscribers)})
			default:
				s.log.Debug("control_dropped", map[string]any{"action": msg.Action})
			}
			_ = d.Ack(false)
		}
	}
}
