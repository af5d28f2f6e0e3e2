package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/levijcl/Wei-sub000/pkg/errors"
	"github.com/levijcl/Wei-sub000/pkg/events"
	"github.com/levijcl/Wei-sub000/pkg/logging"
	"github.com/levijcl/Wei-sub000/pkg/metrics"
)

var (
	ErrBusClosed = errors.New("event bus is closed")
)

// Envelope carries a domain event together with its trigger context
// across the in-process bus.
type Envelope struct {
	ID      string
	Event   events.DomainEvent
	Trigger events.TriggerContext
}

// Next builds the envelope for an event caused by this one, propagating
// the correlation id and recording the causing event as the source.
func (e Envelope) Next(event events.DomainEvent) Envelope {
	return Envelope{
		ID:      uuid.New().String(),
		Event:   event,
		Trigger: e.Trigger.Next(e.Event.EventType(), e.ID),
	}
}

// NewEnvelope wraps an event with a fresh envelope id.
func NewEnvelope(event events.DomainEvent, trigger events.TriggerContext) Envelope {
	return Envelope{
		ID:      uuid.New().String(),
		Event:   event,
		Trigger: trigger,
	}
}

// Handler processes a delivered envelope. Delivery is at-least-once:
// handlers must tolerate redelivery of the same envelope.
type Handler func(ctx context.Context, env Envelope) error

// DeadLetterFunc receives envelopes that exhausted their retries or
// failed with a non-retryable error.
type DeadLetterFunc func(ctx context.Context, env Envelope, handlerName string, err error)

type subscription struct {
	name    string
	handler Handler
}

// Config holds event bus tuning parameters
type Config struct {
	BufferSize   int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BufferSize:   1024,
		Workers:      8,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
	}
}

// Bus is an in-process publish/subscribe dispatcher for domain events.
// Handlers for the same event type run sequentially per delivery;
// deliveries themselves are spread over a worker pool.
type Bus struct {
	config     Config
	logger     *logging.Logger
	metrics    *metrics.Metrics
	deadLetter DeadLetterFunc

	mu            sync.RWMutex
	subscriptions map[string][]subscription
	closed        bool

	queue chan Envelope
	wg    sync.WaitGroup
}

// New creates a Bus and starts its worker pool.
func New(config Config, logger *logging.Logger, m *metrics.Metrics) *Bus {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = DefaultConfig().RetryBackoff
	}

	b := &Bus{
		config:        config,
		logger:        logger.WithComponent("eventbus"),
		metrics:       m,
		subscriptions: make(map[string][]subscription),
		queue:         make(chan Envelope, config.BufferSize),
	}

	for i := 0; i < config.Workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}

	return b
}

// SetDeadLetter installs the dead letter sink. Must be called before
// the first publish.
func (b *Bus) SetDeadLetter(fn DeadLetterFunc) {
	b.deadLetter = fn
}

// Subscribe registers a named handler for an event type.
func (b *Bus) Subscribe(eventType string, name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions[eventType] = append(b.subscriptions[eventType], subscription{
		name:    name,
		handler: handler,
	})
}

// Publish enqueues an envelope for asynchronous delivery. It blocks
// only when the buffer is full.
func (b *Bus) Publish(ctx context.Context, env Envelope) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrBusClosed
	}

	if env.ID == "" {
		env.ID = uuid.New().String()
	}

	select {
	case b.queue <- env:
		if b.metrics != nil {
			b.metrics.EventsPublishedTotal.WithLabelValues(env.Event.EventType()).Inc()
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAll enqueues a batch of events sharing a trigger context.
func (b *Bus) PublishAll(ctx context.Context, trigger events.TriggerContext, evts []events.DomainEvent) error {
	for _, evt := range evts {
		if err := b.Publish(ctx, NewEnvelope(evt, trigger)); err != nil {
			return fmt.Errorf("publishing %s: %w", evt.EventType(), err)
		}
	}
	return nil
}

// Close stops accepting publishes and drains queued envelopes.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.queue)
	b.wg.Wait()
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for env := range b.queue {
		b.dispatch(env)
	}
}

func (b *Bus) dispatch(env Envelope) {
	b.mu.RLock()
	subs := b.subscriptions[env.Event.EventType()]
	b.mu.RUnlock()

	if len(subs) == 0 {
		b.logger.Debug("no subscribers for event",
			"event_type", env.Event.EventType(),
			"envelope_id", env.ID)
		return
	}

	ctx := context.Background()
	for _, sub := range subs {
		b.deliver(ctx, env, sub)
	}
}

func (b *Bus) deliver(ctx context.Context, env Envelope, sub subscription) {
	eventType := env.Event.EventType()
	log := b.logger.With(
		"event_type", eventType,
		"handler", sub.name,
		"envelope_id", env.ID,
		"correlation_id", env.Trigger.CorrelationID,
	)

	var err error
	for attempt := 0; attempt <= b.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if b.metrics != nil {
				b.metrics.EventRetriesTotal.WithLabelValues(eventType, sub.name).Inc()
			}
			time.Sleep(b.config.RetryBackoff * time.Duration(1<<(attempt-1)))
		}

		start := time.Now()
		err = sub.handler(ctx, env)
		if b.metrics != nil {
			b.metrics.EventHandlerDuration.WithLabelValues(eventType, sub.name).Observe(time.Since(start).Seconds())
		}

		if err == nil {
			if b.metrics != nil {
				b.metrics.EventsHandledTotal.WithLabelValues(eventType, sub.name, "success").Inc()
			}
			return
		}

		if !isRetryable(err) {
			log.Error("handler failed with non-retryable error", "error", err)
			break
		}
		log.Warn("handler failed, will retry",
			"attempt", attempt+1,
			"max_retries", b.config.MaxRetries,
			"error", err)
	}

	if b.metrics != nil {
		b.metrics.EventsHandledTotal.WithLabelValues(eventType, sub.name, "failure").Inc()
		b.metrics.EventsDeadLettered.WithLabelValues(eventType, sub.name).Inc()
	}
	log.Error("event dead lettered", "error", err)
	if b.deadLetter != nil {
		b.deadLetter(ctx, env, sub.name, err)
	}
}

// isRetryable reports whether a handler error might succeed on
// redelivery. Invalid state and validation failures are deterministic
// and go straight to the dead letter path.
func isRetryable(err error) bool {
	if appErr, ok := apperrors.IsAppError(err); ok {
		switch appErr.Code {
		case apperrors.CodeInvalidState, apperrors.CodeValidationError, apperrors.CodeConflict:
			return false
		}
	}
	return true
}
