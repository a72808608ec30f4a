package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/ports"
)

// ProcessPayment settles a single approved incentive through the payment
// gateway. Contact info always comes from the stored recipient; a missing
// channel is a hard validation failure, never substituted.
func (s *Service) ProcessPayment(ctx context.Context, actor Actor, id string, method domain.PaymentMethod) (PaymentOutput, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return PaymentOutput{}, domain.ErrUnauthorized
	}
	if !actor.isOperator() {
		return PaymentOutput{}, domain.ErrForbidden
	}
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return PaymentOutput{}, domain.ErrIdempotencyRequired
	}
	incentive, err := s.loadIncentive(ctx, id)
	if err != nil {
		return PaymentOutput{}, err
	}
	now := s.nowFn()

	eligibility := domain.CanPayIncentive(s.cfg.Policy, incentive, now)
	if !eligibility.Eligible {
		return PaymentOutput{}, &domain.RuleViolationError{Violations: eligibility.Errors}
	}
	if err := domain.ValidatePaymentMethodCompatibility(method, incentive.Recipient.Contact); err != nil {
		return PaymentOutput{}, err
	}
	s.flagRiskyPayment(ctx, incentive, now)

	requestHash := hashPayload(struct {
		IncentiveID string
		Method      domain.PaymentMethod
	}{incentive.ID, method})
	cached, done, err := s.checkIdempotency(ctx, actor.IdempotencyKey, requestHash, now)
	if err != nil {
		return PaymentOutput{}, err
	}
	if done {
		var output PaymentOutput
		if err := json.Unmarshal(cached, &output); err != nil {
			return PaymentOutput{}, s.internalFailure(ctx, "decode_idempotent_response", err)
		}
		return output, nil
	}

	response, err := s.gateway.ProcessPayment(ctx, ports.PaymentRequest{
		Amount:    incentive.Reward.Amount,
		Currency:  incentive.Reward.Currency,
		Method:    method,
		Recipient: incentive.Recipient.Contact,
		Reference: incentive.ID,
	})
	if err != nil {
		s.auditLog.LogError(ctx, "payment_gateway_call_failed", map[string]any{
			"incentive_id": incentive.ID,
			"error":        err.Error(),
		})
		return PaymentOutput{}, fmt.Errorf("%w: %s", domain.ErrGatewayUnavailable, err.Error())
	}
	if !response.Success {
		s.appendAudit(ctx, ports.AuditRecord{
			LogID:       uuid.NewString(),
			IncentiveID: incentive.ID,
			RecipientIP: incentive.Recipient.IP,
			Action:      "payment_gateway_declined",
			Amount:      incentive.Reward.Amount,
			CreatedAt:   now,
			Metadata:    map[string]string{"reason": response.Error},
		})
		return PaymentOutput{}, fmt.Errorf("%w: %s", domain.ErrGatewayUnavailable, response.Error)
	}

	result, event := incentive.ExecutePayment(s.cfg.Policy, method, response.TransactionID, now)
	if !result.Succeeded {
		if err := s.publishEvents(ctx, []domain.Event{event}); err != nil {
			return PaymentOutput{}, s.internalFailure(ctx, "publish_incentive_events", err)
		}
		s.appendAudit(ctx, ports.AuditRecord{
			LogID:       uuid.NewString(),
			IncentiveID: incentive.ID,
			RecipientIP: incentive.Recipient.IP,
			Action:      "payment_failed",
			Amount:      incentive.Reward.Amount,
			CreatedAt:   now,
			Metadata:    map[string]string{"reason": result.FailureReason},
		})
		return PaymentOutput{}, domain.NewRuleViolationError(result.FailureReason)
	}

	if err := s.incentives.Save(ctx, incentive); err != nil {
		return PaymentOutput{}, s.internalFailure(ctx, "save_incentive", err)
	}
	if err := s.publishEvents(ctx, []domain.Event{event}); err != nil {
		return PaymentOutput{}, s.internalFailure(ctx, "publish_incentive_events", err)
	}
	s.appendAudit(ctx, ports.AuditRecord{
		LogID:       uuid.NewString(),
		IncentiveID: incentive.ID,
		RecipientIP: incentive.Recipient.IP,
		Action:      "payment_completed",
		Amount:      incentive.Reward.Amount,
		CreatedAt:   now,
		Metadata: map[string]string{
			"method":         string(method),
			"transaction_id": result.TransactionID,
		},
	})
	s.auditLog.LogBusinessEvent(ctx, "payment_completed", map[string]any{
		"incentive_id":   incentive.ID,
		"amount":         incentive.Reward.Amount,
		"method":         string(method),
		"transaction_id": result.TransactionID,
	})

	output := PaymentOutput{
		IncentiveID:   incentive.ID,
		TransactionID: result.TransactionID,
		Amount:        incentive.Reward.Amount,
		Currency:      incentive.Reward.Currency,
		Method:        method,
		PaidAt:        now,
	}
	if err := s.completeIdempotency(ctx, actor.IdempotencyKey, output); err != nil {
		return PaymentOutput{}, err
	}
	return output, nil
}

// ProcessBatchPayment pays a bounded list of incentives with per-item failure
// isolation: one item failing its checks, the gateway call or the transition
// never aborts or rolls back the rest. Items are processed sequentially so the
// result order always matches the request order.
func (s *Service) ProcessBatchPayment(ctx context.Context, actor Actor, ids []string, method domain.PaymentMethod) (BatchPaymentOutput, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return BatchPaymentOutput{}, domain.ErrUnauthorized
	}
	if !actor.isOperator() {
		return BatchPaymentOutput{}, domain.ErrForbidden
	}
	if len(ids) == 0 {
		return BatchPaymentOutput{}, domain.NewRuleViolationError("batch must contain at least one incentive")
	}
	if len(ids) > s.cfg.Policy.BatchMaxSize {
		return BatchPaymentOutput{}, domain.NewRuleViolationError(fmt.Sprintf("batch size exceeds maximum (%d)", s.cfg.Policy.BatchMaxSize))
	}

	loaded, err := s.incentives.FindByIDs(ctx, ids)
	if err != nil {
		return BatchPaymentOutput{}, s.internalFailure(ctx, "find_incentives", err)
	}
	byID := make(map[string]*domain.Incentive, len(loaded))
	for _, incentive := range loaded {
		byID[incentive.ID] = incentive
	}
	now := s.nowFn()
	var warnings []string
	// When none of the requested ids resolve, every item degrades to a
	// per-item "not found" failure instead of aborting the whole batch.
	if len(loaded) > 0 {
		validation := domain.ValidateBatchPayment(s.cfg.Policy, loaded, now)
		if len(validation.Errors) > 0 {
			return BatchPaymentOutput{}, &domain.RuleViolationError{Violations: validation.Errors}
		}
		warnings = validation.Warnings
	}

	output := BatchPaymentOutput{Warnings: warnings}
	for _, id := range ids {
		output.Results = append(output.Results, s.payBatchItem(ctx, byID[id], id, method))
	}
	for _, item := range output.Results {
		if item.Success {
			output.SuccessCount++
			output.TotalPaid += item.Amount
		} else {
			output.FailureCount++
		}
	}
	s.appendAudit(ctx, ports.AuditRecord{
		LogID:     uuid.NewString(),
		Action:    "batch_payment_processed",
		Amount:    output.TotalPaid,
		CreatedAt: now,
		Metadata: map[string]string{
			"actor":         actor.SubjectID,
			"method":        string(method),
			"requested":     fmt.Sprintf("%d", len(ids)),
			"success_count": fmt.Sprintf("%d", output.SuccessCount),
			"failure_count": fmt.Sprintf("%d", output.FailureCount),
		},
	})
	s.auditLog.LogBusinessEvent(ctx, "batch_payment_processed", map[string]any{
		"requested":     len(ids),
		"success_count": output.SuccessCount,
		"failure_count": output.FailureCount,
		"total_paid":    output.TotalPaid,
	})
	return output, nil
}

func (s *Service) payBatchItem(ctx context.Context, incentive *domain.Incentive, id string, method domain.PaymentMethod) BatchItemResult {
	if incentive == nil {
		return BatchItemResult{IncentiveID: id, Reason: "incentive not found"}
	}
	now := s.nowFn()
	eligibility := domain.CanPayIncentive(s.cfg.Policy, incentive, now)
	if !eligibility.Eligible {
		return BatchItemResult{IncentiveID: id, Reason: strings.Join(eligibility.Errors, "; ")}
	}
	if err := domain.ValidatePaymentMethodCompatibility(method, incentive.Recipient.Contact); err != nil {
		return BatchItemResult{IncentiveID: id, Reason: err.Error()}
	}
	response, err := s.gateway.ProcessPayment(ctx, ports.PaymentRequest{
		Amount:    incentive.Reward.Amount,
		Currency:  incentive.Reward.Currency,
		Method:    method,
		Recipient: incentive.Recipient.Contact,
		Reference: incentive.ID,
	})
	if err != nil {
		return BatchItemResult{IncentiveID: id, Reason: "payment gateway error: " + err.Error()}
	}
	if !response.Success {
		return BatchItemResult{IncentiveID: id, Reason: "payment gateway declined: " + response.Error}
	}
	result, event := incentive.ExecutePayment(s.cfg.Policy, method, response.TransactionID, now)
	if !result.Succeeded {
		if err := s.publishEvents(ctx, []domain.Event{event}); err != nil {
			s.auditLog.LogError(ctx, "publish_incentive_events_failed", map[string]any{"incentive_id": id, "error": err.Error()})
		}
		return BatchItemResult{IncentiveID: id, Reason: result.FailureReason}
	}
	if err := s.incentives.Save(ctx, incentive); err != nil {
		return BatchItemResult{IncentiveID: id, Reason: "failed to persist payment"}
	}
	if err := s.publishEvents(ctx, []domain.Event{event}); err != nil {
		s.auditLog.LogError(ctx, "publish_incentive_events_failed", map[string]any{"incentive_id": id, "error": err.Error()})
	}
	return BatchItemResult{
		IncentiveID:   id,
		Success:       true,
		TransactionID: result.TransactionID,
		Amount:        incentive.Reward.Amount,
	}
}

// flagRiskyPayment never blocks the payment; elevated assessments only leave
// a security trail for review.
func (s *Service) flagRiskyPayment(ctx context.Context, incentive *domain.Incentive, now time.Time) {
	usage, err := s.usage.History(ctx, incentive.Recipient.IP, now)
	if err != nil {
		s.auditLog.LogError(ctx, "usage_tracker_history_failed", map[string]any{
			"ip":    incentive.Recipient.IP,
			"error": err.Error(),
		})
		return
	}
	assessment := domain.GenerateRiskAssessment(s.cfg.Policy, incentive, usage, now)
	if assessment.Level == domain.RiskHigh || assessment.Level == domain.RiskCritical {
		s.auditLog.LogSecurityEvent(ctx, "high_risk_payment_flagged", map[string]any{
			"incentive_id": incentive.ID,
			"ip":           incentive.Recipient.IP,
			"risk_score":   assessment.Score,
			"risk_level":   string(assessment.Level),
			"factors":      assessment.Factors,
		})
	}
}
