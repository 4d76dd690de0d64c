// Package telemetry captures interaction events without blocking the code
// path that produced them, and transmits them to sinks from a background
// flush worker.
package telemetry

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/abhisek/aptitude/internal/logger"
	"github.com/abhisek/aptitude/internal/metrics"
)

// item is one unit of outbound work.
type item struct {
	event    *Event
	response *Response
}

// Collector buffers events locally and queues them for transmission.
//
// Capture is synchronous and never blocks: the event is appended to the local
// buffer and offered to a bounded queue. When the queue is full the outbound
// copy is dropped; the local copy is kept. Delivery to sinks is at most once.
type Collector struct {
	mu        sync.Mutex
	active    bool
	closed    bool
	sessionID string
	seq       uint64
	events    []Event
	responses map[string]any
	counts    map[string]int

	lastPointer time.Time
	hasPointer  bool

	throttle    time.Duration
	queueSize   int
	sendTimeout time.Duration
	now         func() time.Time
	sinks       []Sink
	log         logger.Logger
	metrics     *metrics.Manager
	paused      bool

	queue chan item
	done  chan struct{}
}

// NewCollector creates a Collector and starts its flush worker.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		throttle:    DefaultThrottle,
		queueSize:   DefaultQueueSize,
		sendTimeout: DefaultSendTimeout,
		now:         time.Now,
		log:         logger.Nop(),
		metrics:     metrics.Default(),
		responses:   make(map[string]any),
		counts:      make(map[string]int),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.queue = make(chan item, c.queueSize)

	if c.paused {
		close(c.done)
	} else {
		go c.flushLoop()
	}
	return c
}

// Start activates capture for sessionID. Calling it again for the active
// session only re-logs a start marker. A different session id resets the
// local buffer.
func (c *Collector) Start(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active || c.sessionID != sessionID {
		c.sessionID = sessionID
		c.events = nil
		c.responses = make(map[string]any)
		c.counts = make(map[string]int)
		c.hasPointer = false
	}
	c.active = true
	c.appendLocked(EventSessionStart, map[string]any{"sessionId": sessionID})
}

// Active reports whether capture is on.
func (c *Collector) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SessionID returns the session being captured.
func (c *Collector) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Record captures an event. Pointer moves are rate limited; every other type
// is captured 1:1. Events recorded while inactive are ignored.
func (c *Collector) Record(eventType string, data map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return
	}
	if eventType == EventPointerMove && !c.admitPointerLocked() {
		c.metrics.EventThrottled()
		return
	}
	c.appendLocked(eventType, data)
}

// Pointer records a pointer move at (x, y).
func (c *Collector) Pointer(x, y int) {
	c.Record(EventPointerMove, map[string]any{"x": x, "y": y})
}

// RecordResponse stores a keyed response, overwriting an earlier value for
// the same key, and mirrors it to the sinks.
func (c *Collector) RecordResponse(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return
	}
	c.responses[key] = value
	c.enqueueLocked(item{response: &Response{
		SessionID: c.sessionID,
		Key:       key,
		Value:     value,
		Timestamp: c.now(),
	}})
}

// Stop deactivates capture and emits a summary event. Stopping an inactive
// collector is a no-op.
func (c *Collector) Stop() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return c.summaryLocked()
	}
	sum := c.summaryLocked()
	c.active = false
	c.appendLocked(EventSessionSummary, sum.Data())
	return sum
}

// Events returns a copy of the local buffer.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// Responses returns a copy of the recorded responses.
func (c *Collector) Responses() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.responses)
}

// Pending returns the number of items waiting for transmission.
func (c *Collector) Pending() int {
	return len(c.queue)
}

// Flush synchronously drains the queue into the sinks. Used with WithPaused.
func (c *Collector) Flush(ctx context.Context) {
	for {
		select {
		case it, ok := <-c.queue:
			if !ok {
				return
			}
			c.deliver(ctx, it)
		default:
			return
		}
	}
}

// Close stops accepting work and waits for queued items to be delivered or
// for ctx to end.
func (c *Collector) Close(ctx context.Context) error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.queue)
	}
	c.mu.Unlock()

	if c.paused {
		c.Flush(ctx)
		return nil
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Collector) admitPointerLocked() bool {
	now := c.now()
	if c.hasPointer && now.Sub(c.lastPointer) < c.throttle {
		return false
	}
	c.lastPointer = now
	c.hasPointer = true
	return true
}

func (c *Collector) appendLocked(eventType string, data map[string]any) {
	c.seq++
	e := Event{
		Seq:       c.seq,
		Type:      eventType,
		Timestamp: c.now(),
		SessionID: c.sessionID,
		Data:      data,
	}
	c.events = append(c.events, e)
	c.counts[eventType]++
	c.metrics.EventCaptured(eventType)
	c.enqueueLocked(item{event: &e})
}

// enqueueLocked offers it to the queue without blocking.
func (c *Collector) enqueueLocked(it item) {
	if c.closed {
		return
	}
	select {
	case c.queue <- it:
		c.metrics.EventEnqueued()
	default:
		c.metrics.EventDropped()
	}
	c.metrics.QueueDepth(len(c.queue))
}

func (c *Collector) flushLoop() {
	defer close(c.done)
	for it := range c.queue {
		c.deliver(context.Background(), it)
		c.metrics.QueueDepth(len(c.queue))
	}
}

// deliver hands one item to every sink. Failures are logged and counted,
// never retried.
func (c *Collector) deliver(ctx context.Context, it item) {
	for _, s := range c.sinks {
		sendCtx, cancel := context.WithTimeout(ctx, c.sendTimeout)
		var err error
		switch {
		case it.event != nil:
			err = s.SendEvent(sendCtx, *it.event)
		case it.response != nil:
			err = s.SendResponse(sendCtx, *it.response)
		}
		cancel()

		c.metrics.SinkSend(s.Name(), err)
		if err != nil {
			c.log.Warn(ctx, "telemetry transmission failed",
				logger.String("sink", s.Name()),
				logger.String("session_id", sessionOf(it)),
				logger.Error(err),
			)
		}
	}
}

func sessionOf(it item) string {
	if it.event != nil {
		return it.event.SessionID
	}
	if it.response != nil {
		return it.response.SessionID
	}
	return ""
}
