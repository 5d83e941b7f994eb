// Package events publishes domain events to a RabbitMQ topic exchange.
// The routing key is the event type, so consumers bind with patterns such
// as "borrowing.*".
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/port"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("events")

const publishTimeout = 5 * time.Second

var (
	_ port.EventPublisher = (*Publisher)(nil)
	_ port.EventPublisher = NoopPublisher{}
)

// Publisher sends events over a single AMQP channel.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger

	mu sync.Mutex
}

// NewPublisher dials the broker and declares a durable topic exchange.
func NewPublisher(url, exchange string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	logger.Info("amqp publisher ready", zap.String("exchange", exchange))
	return &Publisher{conn: conn, channel: channel, exchange: exchange, logger: logger}, nil
}

// Encode renders an event as a persistent JSON message.
func Encode(event domain.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         string(event.Type),
		Timestamp:    event.OccurredAt,
		Headers:      amqp.Table{"tenant_id": event.TenantID},
		Body:         body,
	}, nil
}

// Publish sends one event, routed by its type.
func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	ctx, span := tracer.Start(ctx, "Events.Publish")
	defer span.End()

	msg, err := Encode(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	err = p.channel.PublishWithContext(ctx,
		p.exchange,         // exchange
		string(event.Type), // routing key
		false,              // mandatory
		false,              // immediate
		msg,
	)
	p.mu.Unlock()
	if err != nil {
		return &domain.ErrExternalService{Service: "amqp", Err: fmt.Errorf("publish %s: %w", event.Type, err)}
	}

	p.logger.Debug("event published",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("tenant_id", event.TenantID),
	)
	return nil
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NoopPublisher drops events. Used when AMQP_URL is unset.
type NoopPublisher struct {
	Logger *zap.Logger
}

func (n NoopPublisher) Publish(_ context.Context, event domain.Event) error {
	if n.Logger != nil {
		n.Logger.Debug("event dropped (no broker configured)",
			zap.String("type", string(event.Type)),
			zap.String("tenant_id", event.TenantID),
		)
	}
	return nil
}

func (NoopPublisher) Close() error { return nil }
