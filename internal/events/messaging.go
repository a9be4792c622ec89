package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	EventsExchange           = "ecommerce.events"
	CartCheckedOutRoutingKey = "cart.checkedout.v1"
)

type Publisher interface {
	PublishCartCheckedOut(ctx context.Context, env EventEnvelope) error
	Close() error
}

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitPublisher struct {
	ch     channel
	logger *zap.Logger
}

func NewRabbitPublisher(conn *amqp.Connection, logger *zap.Logger) (*RabbitPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := newRabbitPublisher(ch, logger)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	return p, nil
}

func newRabbitPublisher(ch channel, logger *zap.Logger) (*RabbitPublisher, error) {
	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare %s: %w", EventsExchange, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RabbitPublisher{ch: ch, logger: logger}, nil
}

func declareEventsExchange(ch channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

func (p *RabbitPublisher) PublishCartCheckedOut(ctx context.Context, env EventEnvelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", env.EventName, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		CartCheckedOutRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     env.EventID,
			CorrelationId: env.CorrelationID,
			Timestamp:     env.OccurredAt,
			Type:          env.EventName,
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", env.EventName, err)
	}

	p.logger.Info("event published",
		zap.String("event", env.EventName),
		zap.String("event_id", env.EventID),
		zap.String("cart_id", env.PartitionKey))
	return nil
}

func (p *RabbitPublisher) Close() error {
	return p.ch.Close()
}

// LogPublisher only logs events. Used when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishCartCheckedOut(ctx context.Context, env EventEnvelope) error {
	p.logger.Info("event not published, no broker configured",
		zap.String("event", env.EventName),
		zap.String("event_id", env.EventID),
		zap.String("cart_id", env.PartitionKey),
		zap.Int("items", len(env.Payload.Items)),
		zap.String("grand_total", env.Payload.Totals.GrandTotal.StringFixed(2)))
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Dial connects to RabbitMQ, retrying while the broker starts up.
func Dial(ctx context.Context, url string, logger *zap.Logger) (*amqp.Connection, error) {
	var lastErr error
	for attempt := 1; attempt <= 10; attempt++ {
		conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
		if err == nil {
			return conn, nil
		}
		lastErr = err
		logger.Warn("rabbitmq not ready", zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return nil, fmt.Errorf("connect to rabbitmq: %w", lastErr)
}
