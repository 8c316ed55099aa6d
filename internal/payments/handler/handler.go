// Package handler provides the HTTP handlers for the payments module.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lmaalem_backend/internal/payments/service"
	"lmaalem_backend/internal/payments/transport"
	"lmaalem_backend/platform/apperr"
	"lmaalem_backend/platform/httpkit"
	"lmaalem_backend/platform/validator"
)

// Handler handles HTTP requests for payment intents.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new payments handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// CreateIntent creates a payment intent.
// POST /api/v1/payments/intent
func (h *Handler) CreateIntent(c *gin.Context) {
	var req transport.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation("amount is required and must be greater than 0").WithDetails(err.Error()))
		return
	}

	result, err := h.svc.CreateIntent(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
