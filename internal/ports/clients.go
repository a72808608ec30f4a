package ports

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/domain"
)

type PaymentRequest struct {
	Amount    float64
	Currency  string
	Method    domain.PaymentMethod
	Recipient domain.ContactInfo
	Reference string
}

type PaymentResponse struct {
	Success       bool
	TransactionID string
	Error         string
}

// PaymentGateway is the external settlement provider. Retry and settlement
// semantics live on the provider side; a failed call surfaces immediately.
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, request PaymentRequest) (PaymentResponse, error)
}

type DomainPublisher interface {
	PublishDomain(ctx context.Context, event contracts.EventEnvelope) error
}
