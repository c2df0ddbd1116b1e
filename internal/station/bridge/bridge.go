// Package bridge owns the push-channel connection of one mounted station
// view. Each view constructs its own Bridge and tears it down on exit;
// there is no process-wide shared channel object.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"comanda-system/internal/connections/rabbitmq"
	"comanda-system/internal/domain"
	"comanda-system/internal/logger"
)

// Handlers receive validated inbound events in delivery order. A nil handler
// means the station did not bind that event's routing key.
type Handlers struct {
	OnTableTotals func(domain.TableTotalsEvent)
	OnNewOrder    func(domain.NewOrderEvent)
}

type Config struct {
	URL     string
	Station string // unique station name, used for queue and consumer tag

	// SubscribeTotals makes the bridge announce interest in table totals to
	// the settlement service on every (re)connect, and withdraw it on exit.
	// Cashier stations set it; kitchen stations only listen for new orders.
	SubscribeTotals bool
}

type Bridge struct {
	cfg      Config
	handlers Handlers
	log      *logger.Logger
}

func New(cfg Config, handlers Handlers, log *logger.Logger) *Bridge {
	return &Bridge{cfg: cfg, handlers: handlers, log: log}
}

// Run keeps the station connected until ctx is cancelled. On transport-level
// disconnects it redials with backoff and resubscribes; missed events are
// not replayed, the next snapshot fully replaces state anyway.
func (b *Bridge) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := b.connectAndConsume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.log.Error("bridge_disconnected", err, map[string]any{"station": b.cfg.Station, "retry_in": backoff.String()})
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (b *Bridge) connectAndConsume(ctx context.Context) error {
	client, err := rabbitmq.Dial(b.cfg.URL)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.DeclareTopology(); err != nil {
		return err
	}

	queueName := "station." + b.cfg.Station
	ch := client.Channel()
	if _, err := ch.QueueDeclare(queueName, false, true, true, false, nil); err != nil {
		return err
	}
	for _, key := range b.bindingKeys() {
		if err := ch.QueueBind(queueName, key, rabbitmq.ExchangeEvents, false, nil); err != nil {
			return err
		}
	}

	if b.cfg.SubscribeTotals {
		if err := b.sendControl(ctx, client, domain.ControlSubscribeTotals); err != nil {
			return err
		}
		// Withdraw the subscription on every exit path, including errors.
		// Best effort: teardown must not fail because the intent was lost.
		defer func() {
			ctx2, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := b.sendControl(ctx2, client, domain.ControlUnsubscribeTotals); err != nil {
				b.log.Debug("unsubscribe_failed", map[string]any{"station": b.cfg.Station, "error": err.Error()})
			}
		}()
	}

	deliveries, err := client.Consume(queueName, b.cfg.Station, 10)
	if err != nil {
		return err
	}
	closed := client.NotifyClose()
	b.log.Info("bridge_connected", map[string]any{"station": b.cfg.Station, "queue": queueName})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-closed:
			if e != nil {
				return e
			}
			return errors.New("connection closed")
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			b.route(d)
			_ = d.Ack(false)
		}
	}
}

// route dispatches one delivery. Malformed payloads are dropped without
// touching station state; the delivery is acked either way so the channel
// never loops on garbage.
func (b *Bridge) route(d amqp.Delivery) {
	switch d.RoutingKey {
	case rabbitmq.KeyTableTotals:
		if b.handlers.OnTableTotals == nil {
			return
		}
		ev, err := domain.DecodeTableTotals(d.Body)
		if err != nil {
			b.log.Debug("event_dropped", map[string]any{"key": d.RoutingKey, "error": err.Error()})
			return
		}
		b.handlers.OnTableTotals(ev)
	case rabbitmq.KeyNewOrder:
		if b.handlers.OnNewOrder == nil {
			return
		}
		ev, err := domain.DecodeNewOrder(d.Body)
		if err != nil {
			b.log.Debug("event_dropped", map[string]any{"key": d.RoutingKey, "error": err.Error()})
			return
		}
		b.handlers.OnNewOrder(ev)
	default:
		b.log.Debug("event_dropped", map[string]any{"key": d.RoutingKey, "error": "unknown routing key"})
	}
}

func (b *Bridge) bindingKeys() []string {
	var keys []string
	if b.handlers.OnTableTotals != nil {
		keys = append(keys, rabbitmq.KeyTableTotals)
	}
	if b.handlers.OnNewOrder != nil {
		keys = append(keys, rabbitmq.KeyNewOrder)
	}
	return keys
}

func (b *Bridge) sendControl(ctx context.Context, client *rabbitmq.Client, action string) error {
	body, err := json.Marshal(domain.ControlMessage{Action: action, Station: b.cfg.Station})
	if err != nil {
		return err
	}
	return client.Publish(ctx, "", rabbitmq.QueueControl, body, amqp.Table{"x-source": b.cfg.Station})
}
