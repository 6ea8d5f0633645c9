package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler reacts to an event. Errors are logged and never reach the publisher.
type Handler func(ctx context.Context, e Event) error

// Store persists events to the audit log.
type Store interface {
	Append(ctx context.Context, e Event) error
}

// Bus delivers domain events to local handlers and fans them out to other
// instances through a Broadcaster. An event is persisted once, by the
// instance that published it.
type Bus struct {
	instanceID string
	bc         Broadcaster
	store      Store
	log        *zap.Logger
	now        func() time.Time

	mu       sync.RWMutex
	handlers map[Type][]Handler
	all      []Handler

	out chan []byte

	drainTimeout time.Duration
	minBackoff   time.Duration
	maxBackoff   time.Duration
}

const (
	defaultDrainTimeout = 5 * time.Second
	defaultMinBackoff   = 500 * time.Millisecond
	defaultMaxBackoff   = 30 * time.Second
)

func NewBus(instanceID string, bc Broadcaster, store Store, log *zap.Logger, bufSize int) *Bus {
	if bc == nil {
		bc = NoopBroadcaster{}
	}
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Bus{
		instanceID: instanceID,
		bc:         bc,
		store:      store,
		log:        log.With(zap.String("component", "event_bus")),
		now:        time.Now,
		handlers:   make(map[Type][]Handler),
		out:        make(chan []byte, bufSize),

		drainTimeout: defaultDrainTimeout,
		minBackoff:   defaultMinBackoff,
		maxBackoff:   defaultMaxBackoff,
	}
}

func (b *Bus) InstanceID() string { return b.instanceID }

func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// SubscribeAll registers h for every event type.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish persists e, runs local handlers, then queues it for broadcast.
// Only a persistence failure is returned; a full broadcast queue drops the
// event for remote instances with a warning.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if e.Payload == nil {
		return fmt.Errorf("publish: event has no payload")
	}
	e.Type = e.Payload.EventType()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = b.now().UTC()
	}
	e.Origin = b.instanceID

	if b.store != nil {
		if err := b.store.Append(ctx, e); err != nil {
			return fmt.Errorf("persist event %s: %w", e.Type, err)
		}
	}

	b.dispatch(ctx, e)

	data, err := Marshal(e)
	if err != nil {
		b.log.Warn("event not broadcast", zap.String("event_id", e.ID), zap.Error(err))
		return nil
	}
	select {
	case b.out <- data:
	default:
		b.log.Warn("broadcast queue full, event dropped for remote instances",
			zap.String("event_id", e.ID), zap.String("type", string(e.Type)))
	}
	return nil
}

// Run broadcasts queued events and listens for events from other instances
// until ctx is cancelled. A listener that fails is restarted with backoff.
// On cancellation the queue is flushed for at most the drain timeout.
func (b *Bus) Run(ctx context.Context) error {
	listening := make(chan struct{})
	go func() {
		defer close(listening)
		b.listen(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			b.drain(ctx)
			<-listening
			return nil
		case data := <-b.out:
			if err := b.bc.Broadcast(ctx, data); err != nil {
				b.log.Warn("broadcast failed", zap.Error(err))
			}
		}
	}
}

func (b *Bus) listen(ctx context.Context) {
	backoff := b.minBackoff
	for {
		started := time.Now()
		err := b.bc.Listen(ctx, func(data []byte) { b.receive(ctx, data) })
		if ctx.Err() != nil {
			return
		}
		// A listener that stayed up for a while earns a fresh backoff.
		if time.Since(started) > b.maxBackoff {
			backoff = b.minBackoff
		}
		b.log.Warn("event listener stopped, restarting", zap.Error(err), zap.Duration("backoff", backoff))

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		backoff = min(backoff*2, b.maxBackoff)
	}
}

// drain broadcasts whatever is still queued. ctx is already cancelled, so
// the sends run on a detached context bounded by the drain timeout.
func (b *Bus) drain(ctx context.Context) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.drainTimeout)
	defer cancel()

	sent := 0
	for {
		select {
		case data := <-b.out:
			if err := b.bc.Broadcast(dctx, data); err != nil {
				b.log.Warn("broadcast failed during shutdown", zap.Error(err))
			} else {
				sent++
			}
			if dctx.Err() != nil {
				b.log.Warn("drain deadline reached, events dropped for remote instances", zap.Int("remaining", len(b.out)))
				return
			}
		default:
			if sent > 0 {
				b.log.Info("broadcast queue drained", zap.Int("sent", sent))
			}
			return
		}
	}
}

func (b *Bus) receive(ctx context.Context, data []byte) {
	e, err := Unmarshal(data)
	if err != nil {
		b.log.Warn("discarding undecodable event", zap.Error(err))
		return
	}
	// Our own echo: persisted and handled at publish time.
	if e.Origin == b.instanceID {
		return
	}
	b.dispatch(ctx, e)
}

func (b *Bus) dispatch(ctx context.Context, e Event) {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.handlers[e.Type])+len(b.all))
	hs = append(hs, b.handlers[e.Type]...)
	hs = append(hs, b.all...)
	b.mu.RUnlock()

	for _, h := range hs {
		b.call(ctx, h, e)
	}
}

func (b *Bus) call(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				zap.String("event_id", e.ID), zap.String("type", string(e.Type)), zap.Any("panic", r))
		}
	}()
	if err := h(ctx, e); err != nil {
		b.log.Warn("event handler failed",
			zap.String("event_id", e.ID), zap.String("type", string(e.Type)), zap.Error(err))
	}
}
