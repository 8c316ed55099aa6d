// Package handler provides the HTTP handlers for the notifier module.
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"lmaalem_backend/internal/notifier/transport"
	"lmaalem_backend/platform/apperr"
	"lmaalem_backend/platform/httpkit"
	"lmaalem_backend/platform/validator"
)

// Service covers the notifier service surface the handler needs; declared
// locally so the handler does not import the parent notifier package back
// (which would form an import cycle).
type Service interface {
	SendTestCall(ctx context.Context, calleeID, callerID, callerName, callID string) (string, error)
}

// Handler handles HTTP requests for the notifier module.
type Handler struct {
	svc Service
	val *validator.Validator
}

// New creates a new notifier handler.
func New(svc Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// TestCall manually triggers an incoming audio call notification,
// bypassing the Firestore trigger. Test/ops surface only.
// POST /api/v1/notify/test-call
func (h *Handler) TestCall(c *gin.Context) {
	var req transport.TestCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation("missing required fields: calleeId, callerId, callId").WithDetails(err.Error()))
		return
	}

	messageID, err := h.svc.SendTestCall(c.Request.Context(), req.CalleeID, req.CallerID, req.CallerName, req.CallID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.TestCallResponse{
		Success:   true,
		MessageID: messageID,
		Message:   "Test notification sent to " + req.CalleeID,
	})
}
