// Package notifier is the event-notifier bounded context: it watches
// document writes on the calls and requests collections and forwards
// push notifications to the affected users.
package notifier

import (
	"context"

	"lmaalem_backend/internal/events"
	apphttp "lmaalem_backend/internal/http"
	"lmaalem_backend/internal/messaging"
	"lmaalem_backend/internal/notifier/handler"
	"lmaalem_backend/internal/store"
	"lmaalem_backend/platform/logger"
	"lmaalem_backend/platform/validator"
)

// Module is the notifier bounded context module implementing http.Module.
type Module struct {
	service *Service
	handler *handler.Handler
}

// NewModule creates and initializes the notifier module with all its dependencies.
func NewModule(users store.UserStore, employees store.EmployeeStore, clients store.ClientStore, sender messaging.Sender, val *validator.Validator, log *logger.Logger) *Module {
	svc := NewService(users, employees, clients, sender, log)
	h := handler.New(svc, val)

	return &Module{
		service: svc,
		handler: h,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notifier"
}

// Service returns the service layer for external use.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts the manual-trigger ops route.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/notify/test-call", m.handler.TestCall)
}

// RegisterHandlers subscribes to the document change events.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.CallWritten{}.EventName(), m)
	bus.Subscribe(events.RequestWritten{}.EventName(), m)
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.CallWritten:
		return m.service.HandleCallWritten(ctx, e)
	case events.RequestWritten:
		return m.service.HandleRequestWritten(ctx, e)
	default:
		return nil
	}
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
