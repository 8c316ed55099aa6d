// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"lmaalem_backend/internal/store"
	"lmaalem_backend/platform/events"
	"lmaalem_backend/platform/logger"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
// This is a convenience re-export from platform/events.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Document Change Events
// =============================================================================

// CallWritten is published for every write to a calls/{id} document.
// Before is nil on creation; After is nil on deletion.
type CallWritten struct {
	BaseEvent
	CallID string
	Before *store.Call
	After  *store.Call
}

func (e CallWritten) EventName() string { return "calls.document.written" }

// RequestWritten is published for every write to a requests/{id} document.
// Before is nil on creation; After is nil on deletion.
type RequestWritten struct {
	BaseEvent
	RequestID string
	Before    *store.Request
	After     *store.Request
}

func (e RequestWritten) EventName() string { return "requests.document.written" }
