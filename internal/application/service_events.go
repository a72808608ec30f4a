package application

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/ports"
)

// publishEvents enqueues the emitted events to the outbox in emission order
// and flushes immediately. The outbox worker re-publishes anything a crash
// leaves behind, so a failure between save and flush cannot drop events.
func (s *Service) publishEvents(ctx context.Context, events []domain.Event) error {
	for _, event := range events {
		if err := s.enqueueEvent(ctx, event); err != nil {
			return err
		}
	}
	return s.FlushOutbox(ctx)
}

func (s *Service) enqueueEvent(ctx context.Context, event domain.Event) error {
	payload := map[string]any{
		"incentive_id": event.IncentiveID,
		"recipient_ip": event.RecipientIP,
	}
	for key, value := range event.Fields {
		payload[key] = value
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, ports.OutboxRecord{
		RecordID: uuid.NewString(),
		Envelope: contracts.EventEnvelope{
			EventID:       uuid.NewString(),
			EventType:     event.Name,
			OccurredAt:    event.OccurredAt,
			PartitionKey:  event.IncentiveID,
			SourceService: s.cfg.ServiceName,
			TraceID:       uuid.NewString(),
			SchemaVersion: "v1",
			Data:          data,
		},
		CreatedAt: s.nowFn(),
	})
}

// FlushOutbox publishes pending outbox records in enqueue order.
func (s *Service) FlushOutbox(ctx context.Context) error {
	pending, err := s.outbox.ListPending(ctx, s.cfg.OutboxFlushBatchSize)
	if err != nil {
		return err
	}
	for _, record := range pending {
		if err := s.domainEvents.PublishDomain(ctx, record.Envelope); err != nil {
			return err
		}
		if err := s.outbox.MarkSent(ctx, record.RecordID, s.nowFn()); err != nil {
			return err
		}
	}
	return nil
}

// internalFailure logs unexpected failures with full context and surfaces a
// generic error that leaks no internal detail.
func (s *Service) internalFailure(ctx context.Context, operation string, err error) error {
	s.auditLog.LogError(ctx, "internal_failure", map[string]any{
		"operation": operation,
		"error":     err.Error(),
	})
	return domain.ErrInternal
}

// appendAudit persists an audit record without ever failing the primary
// operation.
func (s *Service) appendAudit(ctx context.Context, record ports.AuditRecord) {
	if err := s.audit.Append(ctx, record); err != nil {
		s.auditLog.LogError(ctx, "audit_append_failed", map[string]any{
			"action": record.Action,
			"error":  err.Error(),
		})
	}
}

func (s *Service) checkIdempotency(ctx context.Context, key, requestHash string, now time.Time) ([]byte, bool, error) {
	existing, err := s.idempotency.Get(ctx, key, now)
	if err != nil {
		return nil, false, s.internalFailure(ctx, "idempotency_lookup", err)
	}
	if existing != nil {
		if existing.RequestHash != requestHash {
			return nil, false, domain.ErrIdempotencyConflict
		}
		return existing.ResponseBody, true, nil
	}
	if err := s.idempotency.Reserve(ctx, key, requestHash, now.Add(s.cfg.IdempotencyTTL)); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, false, domain.ErrIdempotencyConflict
		}
		return nil, false, s.internalFailure(ctx, "idempotency_reserve", err)
	}
	return nil, false, nil
}

func (s *Service) completeIdempotency(ctx context.Context, key string, response any) error {
	payload, err := json.Marshal(response)
	if err != nil {
		return s.internalFailure(ctx, "encode_idempotent_response", err)
	}
	if err := s.idempotency.Complete(ctx, key, 201, payload, s.nowFn()); err != nil {
		return s.internalFailure(ctx, "idempotency_complete", err)
	}
	return nil
}
