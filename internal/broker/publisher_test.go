package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/aptitude/internal/telemetry"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	out    []published
	err    error
	closed bool
}

func (f *fakeChannel) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.out = append(f.out, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestSendEventRoutesByType(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, "aptitude.telemetry")
	ts := time.Unix(1700000000, 500_000_000)

	err := p.SendEvent(context.Background(), telemetry.Event{
		Seq: 4, Type: telemetry.EventChoice, Timestamp: ts, SessionID: "s-1",
		Data: map[string]any{"stage": "alpha"},
	})
	require.NoError(t, err)
	require.Len(t, ch.out, 1)

	got := ch.out[0]
	assert.Equal(t, "aptitude.telemetry", got.exchange)
	assert.Equal(t, "choice", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)

	var body struct {
		Type    string `json:"type"`
		Payload struct {
			SessionID string         `json:"sessionId"`
			Seq       uint64         `json:"seq"`
			Timestamp float64        `json:"timestamp"`
			Data      map[string]any `json:"data"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(got.msg.Body, &body))
	assert.Equal(t, "choice", body.Type)
	assert.Equal(t, "s-1", body.Payload.SessionID)
	assert.Equal(t, uint64(4), body.Payload.Seq)
	assert.InDelta(t, 1700000000.5, body.Payload.Timestamp, 1e-6)
	assert.Equal(t, "alpha", body.Payload.Data["stage"])
}

func TestSendResponse(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, "x")

	err := p.SendResponse(context.Background(), telemetry.Response{SessionID: "s-1", Key: "mode_selection", Value: "fixed"})
	require.NoError(t, err)
	require.Len(t, ch.out, 1)
	assert.Equal(t, RoutingKeyResponse, ch.out[0].key)
	assert.Contains(t, string(ch.out[0].msg.Body), `"key":"mode_selection"`)
}

func TestPublishErrors(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := NewPublisher(ch, "x")
	assert.Error(t, p.SendEvent(context.Background(), telemetry.Event{Type: "click"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch.err = nil
	assert.ErrorIs(t, p.SendEvent(ctx, telemetry.Event{Type: "click"}), context.Canceled)
	assert.Empty(t, ch.out)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
	assert.Equal(t, "amqp", p.Name())
}
