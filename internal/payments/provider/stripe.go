// Package provider contains the Stripe implementation of the payments
// service's IntentCreator.
package provider

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"lmaalem_backend/internal/payments/service"
)

// StripeClient creates payment intents through the Stripe API.
type StripeClient struct {
	api *client.API
}

// NewStripeClient creates a Stripe-backed intent creator.
func NewStripeClient(secretKey string) *StripeClient {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeClient{api: api}
}

// CreateIntent creates a payment intent with automatic payment methods
// enabled, mirroring what the mobile checkout flow expects.
func (c *StripeClient) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*service.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	intent, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe payment intent: %w", err)
	}

	return &service.Intent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// Compile-time check that StripeClient implements service.IntentCreator.
var _ service.IntentCreator = (*StripeClient)(nil)
