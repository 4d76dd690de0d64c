// Package broker mirrors captured telemetry to an AMQP topic exchange. Each
// event is published with its type as the routing key.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"

	"github.com/abhisek/aptitude/internal/telemetry"
)

// RoutingKeyResponse is the routing key of keyed responses.
const RoutingKeyResponse = "response"

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends telemetry to a durable topic exchange. It implements
// telemetry.Sink.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  Channel
	exchange string
}

// Dial connects to url and declares the exchange.
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}
	p := NewPublisher(ch, exchange)
	p.conn = conn
	return p, nil
}

// NewPublisher wraps an open channel whose exchange is already declared.
func NewPublisher(ch Channel, exchange string) *Publisher {
	return &Publisher{channel: ch, exchange: exchange}
}

type message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type eventPayload struct {
	SessionID string         `json:"sessionId"`
	Seq       uint64         `json:"seq"`
	Timestamp float64        `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

type responsePayload struct {
	SessionID string  `json:"sessionId"`
	Key       string  `json:"key"`
	Value     any     `json:"value"`
	Timestamp float64 `json:"timestamp"`
}

// Name implements telemetry.Sink.
func (p *Publisher) Name() string { return "amqp" }

// SendEvent publishes one event.
func (p *Publisher) SendEvent(ctx context.Context, e telemetry.Event) error {
	return p.publish(ctx, e.Type, message{
		Type: e.Type,
		Payload: eventPayload{
			SessionID: e.SessionID,
			Seq:       e.Seq,
			Timestamp: e.Seconds(),
			Data:      e.Data,
		},
	})
}

// SendResponse publishes one keyed response.
func (p *Publisher) SendResponse(ctx context.Context, r telemetry.Response) error {
	return p.publish(ctx, RoutingKeyResponse, message{
		Type: RoutingKeyResponse,
		Payload: responsePayload{
			SessionID: r.SessionID,
			Key:       r.Key,
			Value:     r.Value,
			Timestamp: float64(r.Timestamp.UnixNano()) / 1e9,
		},
	})
}

func (p *Publisher) publish(ctx context.Context, key string, m message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.Publish(
		p.exchange,
		key,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// Close closes the channel and, when the publisher dialed it, the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.channel != nil {
		err = p.channel.Close()
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
