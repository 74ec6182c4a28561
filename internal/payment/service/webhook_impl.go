package service

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/dairyos/internal/observability/metrics"
	"github.com/smallbiznis/dairyos/internal/payment/adapters"
	razorpayadapter "github.com/smallbiznis/dairyos/internal/payment/adapters/razorpay"
	"github.com/smallbiznis/dairyos/internal/payment/domain"
)

type WebhookParams struct {
	fx.In

	Log      *zap.Logger
	Registry *adapters.Registry
	Payments domain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

type webhookService struct {
	log      *zap.Logger
	registry *adapters.Registry
	payments domain.Service
	metrics  *metrics.Metrics
}

func NewWebhookService(p WebhookParams) domain.WebhookService {
	return &webhookService{
		log:      p.Log.Named("payment.webhook"),
		registry: p.Registry,
		payments: p.Payments,
		metrics:  p.Metrics,
	}
}

// IngestWebhook verifies, parses and applies one provider delivery.
// Verification failures are logged without echoing signature material.
func (s *webhookService) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (*domain.ProcessResult, error) {
	adapter, err := s.registry.Get(provider)
	if err != nil {
		s.metrics.RecordWebhookEvent(provider, "unknown_provider")
		return nil, err
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("webhook rejected", zap.String("provider", provider), zap.Error(err))
		s.metrics.RecordWebhookEvent(provider, "rejected")
		return nil, err
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, domain.ErrEventIgnored) {
			s.metrics.RecordWebhookEvent(provider, domain.OutcomeIgnored)
			return &domain.ProcessResult{Outcome: domain.OutcomeIgnored}, nil
		}
		s.log.Warn("webhook payload unparseable", zap.String("provider", provider), zap.Error(err))
		s.metrics.RecordWebhookEvent(provider, "invalid")
		return nil, err
	}

	// The delivery header identifies the event more reliably than the
	// body; prefer it when present.
	if id := headers.Get(razorpayadapter.HeaderEventID); id != "" {
		event.ProviderEventID = id
	}

	return s.payments.ProcessEvent(ctx, event)
}
