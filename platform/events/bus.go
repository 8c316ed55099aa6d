package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"lmaalem_backend/platform/logger"
)

// InMemoryBus is a synchronous-registration, asynchronous-dispatch event bus.
// Handler errors are logged, never propagated to the publisher: a
// document-change handler returning an error must not look retry-worthy
// to the triggering side.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
	log      *logger.Logger
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for the given event name.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish dispatches the event to all handlers, each in its own goroutine.
// One handler's failure or panic does not affect the others.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	for _, h := range b.subscribers(event.EventName()) {
		h := h
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.dispatch(ctx, event, h)
		}()
	}
}

// PublishSync dispatches the event inline and returns the joined handler
// errors. Used by tests and by callers that need settled outcomes.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	var errs []error
	for _, h := range b.subscribers(event.EventName()) {
		if err := h.Handle(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Drain blocks until all asynchronously dispatched handlers have returned.
func (b *InMemoryBus) Drain() {
	b.wg.Wait()
}

func (b *InMemoryBus) subscribers(eventName string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := make([]Handler, len(b.handlers[eventName]))
	copy(handlers, b.handlers[eventName])
	return handlers
}

func (b *InMemoryBus) dispatch(ctx context.Context, event Event, h Handler) {
	defer func() {
		if r := recover(); r != nil && b.log != nil {
			b.log.Error("event handler panic",
				"event", event.EventName(),
				"panic", fmt.Sprint(r),
			)
		}
	}()

	if err := h.Handle(ctx, event); err != nil && b.log != nil {
		b.log.Error("event handler error",
			"event", event.EventName(),
			"error", err.Error(),
		)
	}
}

// Compile-time check that InMemoryBus implements Bus.
var _ Bus = (*InMemoryBus)(nil)
