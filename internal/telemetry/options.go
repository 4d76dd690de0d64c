package telemetry

import (
	"time"

	"github.com/abhisek/aptitude/internal/logger"
	"github.com/abhisek/aptitude/internal/metrics"
)

// Default configuration values.
const (
	DefaultThrottle    = 100 * time.Millisecond
	DefaultQueueSize   = 512
	DefaultSendTimeout = 3 * time.Second
)

// Option configures a Collector.
type Option func(*Collector)

// WithSinks sets the transmission targets.
func WithSinks(sinks ...Sink) Option {
	return func(c *Collector) {
		c.sinks = append(c.sinks, sinks...)
	}
}

// WithThrottle sets the minimum interval between captured pointer moves.
func WithThrottle(d time.Duration) Option {
	return func(c *Collector) {
		if d >= 0 {
			c.throttle = d
		}
	}
}

// WithQueueSize bounds the outbound queue.
func WithQueueSize(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithSendTimeout bounds each sink call.
func WithSendTimeout(d time.Duration) Option {
	return func(c *Collector) {
		if d > 0 {
			c.sendTimeout = d
		}
	}
}

// WithClock overrides the capture clock.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for transmission failures.
func WithLogger(l logger.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *Collector) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithPaused creates the collector without starting its flush worker; call
// Flush to drain the queue manually. Intended for tests.
func WithPaused() Option {
	return func(c *Collector) {
		c.paused = true
	}
}
