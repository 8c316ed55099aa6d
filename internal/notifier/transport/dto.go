// Package transport defines the request/response DTOs for the notifier
// HTTP surface.
package transport

// TestCallRequest is the body of the manual-trigger endpoint.
type TestCallRequest struct {
	CalleeID   string `json:"calleeId" validate:"required"`
	CallerID   string `json:"callerId" validate:"required"`
	CallerName string `json:"callerName"`
	CallID     string `json:"callId" validate:"required"`
}

// TestCallResponse reports a successful manual delivery.
type TestCallResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
	Message   string `json:"message"`
}
