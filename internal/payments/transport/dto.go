// Package transport defines the request/response DTOs for the payments
// HTTP surface.
package transport

// CreateIntentRequest is the body of the create-payment-intent endpoint.
// Amount is in major currency units (e.g. euros).
type CreateIntentRequest struct {
	Amount   float64           `json:"amount" validate:"required,gt=0"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

// CreateIntentResponse carries the provider secret back to the client.
type CreateIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}
