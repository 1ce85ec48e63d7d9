// Package dispatcher routes remote invocations received from other peers to
// registered handlers. Dispatch is synchronous: the peer drains its inbox at
// the start of a tick and every handler runs on the tick goroutine.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tandemdrive/tandem/pkg/core"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrUnknownMethod is returned by Dispatch when no handler is registered.
var ErrUnknownMethod = errors.New("unknown method")

// Invocation is a remote procedure call received from a peer.
type Invocation struct {
	Method   string
	Sender   core.ParticipantID
	Payload  json.RawMessage
	Received time.Time
}

// Decode unmarshals the invocation payload into v.
func (i Invocation) Decode(v any) error {
	if err := json.Unmarshal(i.Payload, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", i.Method, err)
	}
	return nil
}

// HandlerFunc processes an invocation.
type HandlerFunc func(Invocation) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	guard  func() bool
	logged bool
}

// Guarded makes the handler a no-op whenever check returns false.
// Used for methods only the current authority may act on.
func Guarded(check func() bool) Option {
	return func(c *config) {
		c.guard = check
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes invocations to registered handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	// OTEL metrics
	pending   metric.Int64ObservableGauge
	processed metric.Int64Counter
	ignored   metric.Int64Counter
	failed    metric.Int64Counter

	// Queue length sources for the pending gauge
	mu     sync.RWMutex
	queues map[string]func() int
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		queues:   make(map[string]func() int),
		logger:   logger,
	}

	m := meter()

	var err error

	d.pending, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of messages waiting for the next tick"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for name, length := range d.queues {
				o.ObserveInt64(d.pending, int64(length()),
					metric.WithAttributes(attribute.String("queue", name)))
			}
			return nil
		},
		d.pending,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.invocations.processed",
		metric.WithDescription("Total invocations handled"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.ignored, err = m.Int64Counter(
		"dispatcher.invocations.ignored",
		metric.WithDescription("Total invocations ignored by a guard"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ignored counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.invocations.failed",
		metric.WithDescription("Total invocations whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given method with optional configuration.
func (d *Dispatcher) Register(method string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := d.withMetrics(method, h)

	if cfg.guard != nil {
		handler = d.withGuard(method, cfg.guard, handler)
	}

	if cfg.logged {
		handler = d.withLogging(method, handler)
	}

	d.handlers[method] = handler
}

// ObserveQueue reports length() on the queue size gauge under name.
func (d *Dispatcher) ObserveQueue(name string, length func() int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queues[name] = length
}

// Dispatch routes an invocation to its registered handler.
func (d *Dispatcher) Dispatch(inv Invocation) error {
	h, ok := d.handlers[inv.Method]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMethod, inv.Method)
	}
	return h(inv)
}

// HasHandler returns true if a handler is registered for the method.
func (d *Dispatcher) HasHandler(method string) bool {
	_, ok := d.handlers[method]
	return ok
}

func (d *Dispatcher) withMetrics(method string, h HandlerFunc) HandlerFunc {
	attrs := metric.WithAttributes(attribute.String("method", method))
	return func(inv Invocation) error {
		err := h(inv)
		if err != nil {
			d.failed.Add(context.Background(), 1, attrs)
		} else {
			d.processed.Add(context.Background(), 1, attrs)
		}
		return err
	}
}

func (d *Dispatcher) withGuard(method string, check func() bool, h HandlerFunc) HandlerFunc {
	attrs := metric.WithAttributes(attribute.String("method", method))
	return func(inv Invocation) error {
		if !check() {
			d.ignored.Add(context.Background(), 1, attrs)
			return nil
		}
		return h(inv)
	}
}

func (d *Dispatcher) withLogging(method string, h HandlerFunc) HandlerFunc {
	return func(inv Invocation) error {
		start := time.Now()
		d.logger.Debug("handling invocation", "method", method, "sender", inv.Sender)

		err := h(inv)

		if err != nil {
			d.logger.Error("invocation failed", "method", method, "sender", inv.Sender, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("invocation complete", "method", method, "duration", time.Since(start))
		}

		return err
	}
}
