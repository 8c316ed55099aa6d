// Package service implements payment-intent creation on top of an
// injected provider client.
package service

import (
	"context"
	"math"
	"strings"
	"time"

	"lmaalem_backend/internal/payments/transport"
	"lmaalem_backend/platform/apperr"
	"lmaalem_backend/platform/logger"
)

const defaultCurrency = "eur"

// Intent is the provider's created payment intent.
type Intent struct {
	ID           string
	ClientSecret string
}

// IntentCreator is the payment provider capability the service depends
// on. Amount is in minor currency units.
type IntentCreator interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error)
}

// Service handles payment-intent creation.
type Service struct {
	provider IntentCreator
	log      *logger.Logger
}

// New creates a new payments service.
func New(provider IntentCreator, log *logger.Logger) *Service {
	return &Service{provider: provider, log: log}
}

// CreateIntent validates the request, converts the amount to minor units
// (rounded to the nearest integer) and calls the provider. Non-positive
// amounts are rejected before any provider call.
func (s *Service) CreateIntent(ctx context.Context, req transport.CreateIntentRequest) (*transport.CreateIntentResponse, error) {
	if req.Amount <= 0 {
		return nil, apperr.Validation("amount is required and must be greater than 0")
	}

	amountMinor := int64(math.Round(req.Amount * 100))

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	metadata := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["created_at"] = time.Now().UTC().Format(time.RFC3339)

	intent, err := s.provider.CreateIntent(ctx, amountMinor, currency, metadata)
	if err != nil {
		s.log.Error("payment intent creation failed", "error", err.Error())
		return nil, apperr.Wrap(apperr.KindUnavailable, "failed to create payment intent", err)
	}

	s.log.Info("payment intent created",
		"payment_intent_id", intent.ID,
		"amount_minor", amountMinor,
		"currency", currency,
	)

	return &transport.CreateIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	}, nil
}
