// Package payments provides the payment-intent bounded context: a thin
// HTTP wrapper around the payment provider's create-intent call.
package payments

import (
	apphttp "lmaalem_backend/internal/http"
	"lmaalem_backend/internal/payments/handler"
	"lmaalem_backend/internal/payments/service"
	"lmaalem_backend/platform/logger"
	"lmaalem_backend/platform/validator"
)

// Module is the payments bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the payments module. The provider is
// injected so tests can substitute a fake.
func NewModule(provider service.IntentCreator, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(provider, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "payments"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the payment routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/payments/intent", m.handler.CreateIntent)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
