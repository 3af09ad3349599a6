// Package events publishes committed ledger entries to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const exchangeKind = "topic"

// channel is the part of *amqp091.Channel the publisher needs.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// AMQPPublisher publishes LedgerEvents to a durable topic exchange, routed
// by event type (wallet.credited, wallet.debited).
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	ch       channel
	open     func() (channel, error)
	exchange string
	log      zerolog.Logger
}

var _ ports.EventPublisher = (*AMQPPublisher)(nil)

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(rawURL, exchange string, log zerolog.Logger) (*AMQPPublisher, error) {
	cleanURL, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dialing amqp: %w", err)
	}

	p, err := newPublisher(func() (channel, error) { return conn.Channel() }, exchange, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(open func() (channel, error), exchange string, log zerolog.Logger) (*AMQPPublisher, error) {
	p := &AMQPPublisher{open: open, exchange: exchange, log: log}
	if err := p.reopen(); err != nil {
		return nil, err
	}
	return p, nil
}

// reopen replaces the channel and re-declares the exchange. Caller holds mu
// or has exclusive access.
func (p *AMQPPublisher) reopen() error {
	ch, err := p.open()
	if err != nil {
		return fmt.Errorf("opening amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, exchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("declaring exchange %s: %w", p.exchange, err)
	}
	if p.ch != nil {
		p.ch.Close()
	}
	p.ch = ch
	return nil
}

// Publish sends the event. A failed publish reopens the channel and is
// retried once.
func (p *AMQPPublisher) Publish(ctx context.Context, event domain.LedgerEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding ledger event: %w", err)
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    event.TransactionID.String(),
		Timestamp:    event.OccurredAt,
		Type:         event.RoutingKey(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, p.exchange, event.RoutingKey(), false, false, msg)
	if err == nil {
		return nil
	}

	p.log.Warn().Err(err).Str("routing_key", event.RoutingKey()).Msg("ledger event publish failed, reopening channel")
	if reopenErr := p.reopen(); reopenErr != nil {
		return errors.Join(err, reopenErr)
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, event.RoutingKey(), false, false, msg); err != nil {
		return fmt.Errorf("publishing ledger event: %w", err)
	}
	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

// NopPublisher drops events. It stands in when no broker is configured or
// reachable at startup.
type NopPublisher struct {
	log zerolog.Logger
}

var _ ports.EventPublisher = NopPublisher{}

func NewNopPublisher(log zerolog.Logger) NopPublisher {
	return NopPublisher{log: log}
}

func (p NopPublisher) Publish(_ context.Context, event domain.LedgerEvent) error {
	p.log.Debug().
		Str("routing_key", event.RoutingKey()).
		Str("transaction_id", event.TransactionID.String()).
		Msg("ledger event publish skipped")
	return nil
}

func (NopPublisher) Close() error { return nil }

// ValidateURL trims quotes and whitespace and requires an amqp or amqps URL.
func ValidateURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), `"'`)
	if clean == "" {
		return "", errors.New("amqp url is empty")
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", fmt.Errorf("parsing amqp url: %w", err)
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", fmt.Errorf("amqp url scheme must be amqp or amqps, got %q", u.Scheme)
	}
	return clean, nil
}
