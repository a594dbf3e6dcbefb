// Package messaging publishes billing lifecycle events to RabbitMQ for downstream consumers
// (notifications, accounting exports).
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Routing keys of billing events
const (
	RoutingKeyBillingCreated   = "billing.created"
	RoutingKeyBillingPaid      = "billing.paid"
	RoutingKeyBillingFinalized = "billing.finalized"
)

// Publisher is the interface implemented by event publishers
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
	Close()
}

// EventProducer publishes JSON messages to a durable topic exchange
type EventProducer struct {
	exchange string
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	mu       sync.Mutex
}

var _ Publisher = (*EventProducer)(nil)

// NewEventProducer dials RabbitMQ and declares the exchange
func NewEventProducer(amqpURL, exchange string) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &EventProducer{exchange: exchange, conn: conn, channel: ch}, nil
}

// Publish sends body as a persistent JSON message
func (p *EventProducer) Publish(ctx context.Context, routingKey string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.channel.IsClosed() {
		return errors.New("rabbitmq channel not available")
	}

	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    uuid.NewString(),
		Body:         payload,
		Timestamp:    time.Now(),
	})
}

// Close closes the RabbitMQ connection
func (p *EventProducer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// EventProducerFallback logs instead of publishing, used when RabbitMQ is unavailable
type EventProducerFallback struct {
	logger zerolog.Logger
}

var _ Publisher = (*EventProducerFallback)(nil)

// NewEventProducerFallback creates a log-only publisher
func NewEventProducerFallback(logger zerolog.Logger) *EventProducerFallback {
	return &EventProducerFallback{logger: logger.With().Str("component", "mq_fallback").Logger()}
}

// Publish logs the event it would have sent
func (p *EventProducerFallback) Publish(ctx context.Context, routingKey string, body interface{}) error {
	p.logger.Debug().
		Str("routing_key", routingKey).
		Interface("body", body).
		Msg("Would publish event")
	return nil
}

// Close does nothing
func (p *EventProducerFallback) Close() {}

// NewPublisher connects to RabbitMQ when amqpURL is set and falls back to logging otherwise.
// A broker outage at start-up does not stop the API.
func NewPublisher(amqpURL, exchange string, logger zerolog.Logger) Publisher {
	if strings.TrimSpace(amqpURL) == "" {
		logger.Info().Msg("RABBITMQ_URL not set, billing events will only be logged")
		return NewEventProducerFallback(logger)
	}

	producer, err := NewEventProducer(amqpURL, exchange)
	if err != nil {
		logger.Warn().Err(err).Msg("RabbitMQ unavailable, billing events will only be logged")
		return NewEventProducerFallback(logger)
	}

	logger.Info().Str("exchange", exchange).Msg("Connected to RabbitMQ")
	return producer
}

// sanitizeAMQPURL strips quotes and stray prefixes that env files tend to add
func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	idx := strings.Index(strings.ToLower(clean), "amqp")
	if idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}
