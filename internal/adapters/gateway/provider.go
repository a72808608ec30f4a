package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/ports"
)

// SimulatedProvider stands in for the settlement provider in environments
// without provider credentials. Transfers always succeed with a synthetic
// transaction id.
type SimulatedProvider struct {
	logger  *slog.Logger
	latency time.Duration
}

func NewSimulatedProvider(logger *slog.Logger, latency time.Duration) *SimulatedProvider {
	return &SimulatedProvider{logger: logger, latency: latency}
}

func (p *SimulatedProvider) ProcessPayment(ctx context.Context, request ports.PaymentRequest) (ports.PaymentResponse, error) {
	if request.Amount <= 0 {
		return ports.PaymentResponse{Success: false, Error: "amount must be positive"}, nil
	}
	if request.Method == domain.PaymentMethodManual {
		// Manual transfers are settled out of band by the finance team.
		return ports.PaymentResponse{Success: true, TransactionID: "manual_" + uuid.NewString()}, nil
	}
	if p.latency > 0 {
		select {
		case <-ctx.Done():
			return ports.PaymentResponse{}, ctx.Err()
		case <-time.After(p.latency):
		}
	}
	transactionID := fmt.Sprintf("sim_%s_%s", request.Method, uuid.NewString())
	p.logger.InfoContext(ctx, "simulated payment settled",
		"module", "gateway.provider",
		"layer", "adapter",
		"method", string(request.Method),
		"amount", request.Amount,
		"currency", request.Currency,
		"transaction_id", transactionID,
	)
	return ports.PaymentResponse{Success: true, TransactionID: transactionID}, nil
}
