package telemetry

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/aptitude/internal/logger"
	"github.com/abhisek/aptitude/internal/metrics"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type recordingSink struct {
	mu        sync.Mutex
	name      string
	err       error
	events    []Event
	responses []Response
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) SendEvent(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) SendResponse(_ context.Context, r Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, r)
	return s.err
}

func newPaused(t *testing.T, clock *fakeClock, opts ...Option) *Collector {
	t.Helper()
	base := []Option{
		WithPaused(),
		WithClock(clock.Now),
		WithQueueSize(4096),
		WithMetrics(metrics.NewManager()),
	}
	return NewCollector(append(base, opts...)...)
}

func TestPointerMovesAreThrottled(t *testing.T) {
	clock := newFakeClock()
	c := newPaused(t, clock)
	c.Start("s-1")
	baseline := c.Pending()

	// 1,000 moves spread over 100ms: one 100ms window elapsed.
	for i := 0; i < 1000; i++ {
		c.Pointer(i, i)
		clock.Advance(100 * time.Microsecond)
	}

	queued := c.Pending() - baseline
	windows := 1
	assert.LessOrEqual(t, queued, windows+1)
	assert.GreaterOrEqual(t, queued, 1)
}

func TestPointerCaptureResumesAfterInterval(t *testing.T) {
	clock := newFakeClock()
	c := newPaused(t, clock)
	c.Start("s-1")

	for i := 0; i < 10; i++ {
		c.Pointer(i, i)
		clock.Advance(100 * time.Millisecond)
	}

	assert.Equal(t, 10, countType(c.Events(), EventPointerMove))
}

func TestClicksAndKeysAreNeverThrottled(t *testing.T) {
	clock := newFakeClock()
	c := newPaused(t, clock)
	c.Start("s-1")
	baseline := c.Pending()

	for i := 0; i < 1000; i++ {
		c.Record(EventClick, map[string]any{"x": i})
		c.Record(EventKeyPress, map[string]any{"key": "a"})
	}

	assert.Equal(t, 2000, c.Pending()-baseline)
	assert.Equal(t, 1000, countType(c.Events(), EventClick))
	assert.Equal(t, 1000, countType(c.Events(), EventKeyPress))
}

func TestRecordIgnoredWhileInactive(t *testing.T) {
	c := newPaused(t, newFakeClock())

	c.Record(EventClick, nil)
	c.RecordResponse("k", 1)

	assert.Empty(t, c.Events())
	assert.Empty(t, c.Responses())
	assert.Equal(t, 0, c.Pending())
}

func TestStartIsIdempotentPerSession(t *testing.T) {
	c := newPaused(t, newFakeClock())

	c.Start("s-1")
	c.Record(EventClick, nil)
	c.Start("s-1")

	events := c.Events()
	require.Len(t, events, 3)
	assert.Equal(t, EventSessionStart, events[0].Type)
	assert.Equal(t, EventClick, events[1].Type)
	assert.Equal(t, EventSessionStart, events[2].Type)

	c.Start("s-2")
	events = c.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "s-2", events[0].SessionID)
}

func TestResponsesOverwriteByKey(t *testing.T) {
	c := newPaused(t, newFakeClock())
	c.Start("s-1")

	c.RecordResponse("signal_choice", 1)
	c.RecordResponse("signal_choice", 3)

	assert.Equal(t, map[string]any{"signal_choice": 3}, c.Responses())
}

func TestStopEmitsSummary(t *testing.T) {
	clock := newFakeClock()
	c := newPaused(t, clock)
	c.Start("s-1")
	clock.Advance(2 * time.Second)
	c.Record(EventClick, nil)
	clock.Advance(3 * time.Second)
	c.Record(EventKeyPress, nil)

	sum := c.Stop()

	assert.Equal(t, 5*time.Second, sum.Duration)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.Counts[EventClick])
	assert.False(t, c.Active())

	events := c.Events()
	last := events[len(events)-1]
	assert.Equal(t, EventSessionSummary, last.Type)
	assert.Equal(t, 5.0, last.Data["sessionDuration"])

	// Stopping again does not emit another summary.
	c.Stop()
	assert.Len(t, c.Events(), len(events))

	// Capture is off after stop.
	c.Record(EventClick, nil)
	assert.Len(t, c.Events(), len(events))
}

func TestSummaryWithoutEventsHasZeroDuration(t *testing.T) {
	c := newPaused(t, newFakeClock())
	sum := c.Stop()
	assert.Equal(t, time.Duration(0), sum.Duration)
	assert.Equal(t, 0, sum.Total)
}

func TestSinkFailureIsLoggedAndBufferRetained(t *testing.T) {
	var logs bytes.Buffer
	sink := &recordingSink{name: "scoring", err: errors.New("connection refused")}
	c := newPaused(t, newFakeClock(), WithSinks(sink), WithLogger(logger.New(&logs)))
	c.Start("s-1")
	c.Record(EventClick, map[string]any{"x": 1})

	assert.NotPanics(t, func() { c.Flush(context.Background()) })

	assert.Len(t, sink.events, 2)
	assert.Len(t, c.Events(), 2)
	assert.Contains(t, logs.String(), "telemetry transmission failed")
	assert.Contains(t, logs.String(), "connection refused")
	assert.Equal(t, 0, c.Pending())
}

func TestQueueFullDropsOutboundCopyOnly(t *testing.T) {
	c := NewCollector(WithPaused(), WithQueueSize(2), WithMetrics(metrics.NewManager()))
	c.Start("s-1")
	for i := 0; i < 10; i++ {
		c.Record(EventClick, nil)
	}

	assert.Equal(t, 2, c.Pending())
	assert.Len(t, c.Events(), 11)
}

func TestWorkerDeliversToAllSinksOnClose(t *testing.T) {
	remote := &recordingSink{name: "scoring"}
	journal := &recordingSink{name: "journal"}
	c := NewCollector(WithSinks(remote, journal), WithMetrics(metrics.NewManager()))

	c.Start("s-1")
	c.Record(EventChoice, map[string]any{"choice": 2})
	c.RecordResponse("signal_choice", 2)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Close(ctx))

	for _, s := range []*recordingSink{remote, journal} {
		assert.Len(t, s.events, 2, s.name)
		require.Len(t, s.responses, 1, s.name)
		assert.Equal(t, "signal_choice", s.responses[0].Key)
	}

	// Capture after close stays local.
	c.Record(EventClick, nil)
	assert.Len(t, c.Events(), 3)
}

func TestEventSeconds(t *testing.T) {
	e := Event{Timestamp: time.Unix(10, int64(500*time.Millisecond))}
	assert.InDelta(t, 10.5, e.Seconds(), 1e-9)
}

func countType(events []Event, typ string) int {
	n := 0
	for _, e := range events {
		if e.Type == typ {
			n++
		}
	}
	return n
}
