package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/ports"
)

// CreateQuestionnaireIncentive runs the creation gate for a completed
// questionnaire, builds the aggregate, persists it and publishes its events
// through the outbox.
func (s *Service) CreateQuestionnaireIncentive(ctx context.Context, actor Actor, input CreateQuestionnaireIncentiveInput) (domain.Summary, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Summary{}, domain.ErrUnauthorized
	}
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return domain.Summary{}, domain.ErrIdempotencyRequired
	}
	now := s.nowFn()
	trigger := domain.Trigger{
		Type: domain.TriggerQuestionnaire,
		Questionnaire: &domain.QuestionnaireTrigger{
			QuestionnaireID: strings.TrimSpace(input.QuestionnaireID),
			QualityScore:    input.QualityScore,
		},
		QualifiedAt: now,
	}
	return s.createIncentive(ctx, actor, input.IP, trigger, func() (*domain.Incentive, []domain.Event, error) {
		return domain.NewQuestionnaireIncentive(s.cfg.Policy, input.IP, input.QuestionnaireID, input.QualityScore, input.Contact, now)
	})
}

// CreateReferralIncentive grants the fixed referral bonus to the referrer.
// A referrer/referred pair is rewarded at most once.
func (s *Service) CreateReferralIncentive(ctx context.Context, actor Actor, input CreateReferralIncentiveInput) (domain.Summary, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Summary{}, domain.ErrUnauthorized
	}
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return domain.Summary{}, domain.ErrIdempotencyRequired
	}
	now := s.nowFn()
	trigger := domain.Trigger{
		Type: domain.TriggerReferral,
		Referral: &domain.ReferralTrigger{
			ReferrerIP: strings.TrimSpace(input.ReferrerIP),
			ReferredIP: strings.TrimSpace(input.ReferredIP),
		},
		QualifiedAt: now,
	}
	if trigger.Referral.ReferrerIP != trigger.Referral.ReferredIP {
		existing, err := s.incentives.FindReferral(ctx, trigger.Referral.ReferrerIP, trigger.Referral.ReferredIP)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.Summary{}, s.internalFailure(ctx, "create_referral_incentive", err)
		}
		if existing != nil {
			return domain.Summary{}, domain.NewRuleViolationError("referral pair already rewarded")
		}
	}
	return s.createIncentive(ctx, actor, input.ReferrerIP, trigger, func() (*domain.Incentive, []domain.Event, error) {
		return domain.NewReferralIncentive(s.cfg.Policy, input.ReferrerIP, input.ReferredIP, input.Contact, now)
	})
}

func (s *Service) createIncentive(ctx context.Context, actor Actor, ip string, trigger domain.Trigger, build func() (*domain.Incentive, []domain.Event, error)) (domain.Summary, error) {
	now := s.nowFn()
	todayCount, err := s.todayCount(ctx, ip, now)
	if err != nil {
		return domain.Summary{}, s.internalFailure(ctx, "count_today_incentives", err)
	}
	eligibility := domain.CanCreateIncentive(s.cfg.Policy, ip, trigger, todayCount)
	if !eligibility.Eligible {
		s.auditLog.LogSecurityEvent(ctx, "incentive_creation_rejected", map[string]any{
			"ip":     ip,
			"errors": eligibility.Errors,
		})
		return domain.Summary{}, &domain.RuleViolationError{Violations: eligibility.Errors}
	}

	requestHash := hashPayload(struct {
		IP      string
		Trigger domain.Trigger
	}{ip, trigger})
	cached, done, err := s.checkIdempotency(ctx, actor.IdempotencyKey, requestHash, now)
	if err != nil {
		return domain.Summary{}, err
	}
	if done {
		var summary domain.Summary
		if err := json.Unmarshal(cached, &summary); err != nil {
			return domain.Summary{}, s.internalFailure(ctx, "decode_idempotent_response", err)
		}
		return summary, nil
	}

	incentive, events, err := build()
	if err != nil {
		return domain.Summary{}, err
	}
	if err := s.incentives.Save(ctx, incentive); err != nil {
		return domain.Summary{}, s.internalFailure(ctx, "save_incentive", err)
	}
	if err := s.usage.RecordIncentive(ctx, ip, now); err != nil {
		s.auditLog.LogError(ctx, "usage_tracker_record_failed", map[string]any{"ip": ip, "error": err.Error()})
	}
	if err := s.publishEvents(ctx, events); err != nil {
		return domain.Summary{}, s.internalFailure(ctx, "publish_incentive_events", err)
	}
	s.appendAudit(ctx, ports.AuditRecord{
		LogID:       uuid.NewString(),
		IncentiveID: incentive.ID,
		RecipientIP: incentive.Recipient.IP,
		Action:      "incentive_created",
		Amount:      incentive.Reward.Amount,
		CreatedAt:   now,
		Metadata: map[string]string{
			"trigger_type": string(incentive.Trigger.Type),
			"status":       string(incentive.Status),
		},
	})
	s.auditLog.LogBusinessEvent(ctx, "incentive_created", map[string]any{
		"incentive_id": incentive.ID,
		"ip":           incentive.Recipient.IP,
		"amount":       incentive.Reward.Amount,
		"status":       string(incentive.Status),
	})

	summary := incentive.Summarize(now)
	if err := s.completeIdempotency(ctx, actor.IdempotencyKey, summary); err != nil {
		return domain.Summary{}, err
	}
	return summary, nil
}

// ValidateIncentive re-checks aggregate consistency and records the outcome.
// Status is never mutated here; the emitted event is informational.
func (s *Service) ValidateIncentive(ctx context.Context, actor Actor, id string) (ValidationOutput, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return ValidationOutput{}, domain.ErrUnauthorized
	}
	incentive, err := s.loadIncentive(ctx, id)
	if err != nil {
		return ValidationOutput{}, err
	}
	now := s.nowFn()
	result, event := incentive.ValidateEligibility(now)
	if err := s.incentives.Save(ctx, incentive); err != nil {
		return ValidationOutput{}, s.internalFailure(ctx, "save_incentive", err)
	}
	if err := s.publishEvents(ctx, []domain.Event{event}); err != nil {
		return ValidationOutput{}, s.internalFailure(ctx, "publish_incentive_events", err)
	}
	s.appendAudit(ctx, ports.AuditRecord{
		LogID:       uuid.NewString(),
		IncentiveID: incentive.ID,
		RecipientIP: incentive.Recipient.IP,
		Action:      "incentive_validated",
		CreatedAt:   now,
		Metadata:    map[string]string{"valid": fmt.Sprintf("%t", result.Valid)},
	})
	return ValidationOutput{IncentiveID: incentive.ID, Valid: result.Valid, Errors: result.Errors}, nil
}

// ApproveIncentive moves a pending incentive into the payable queue.
func (s *Service) ApproveIncentive(ctx context.Context, actor Actor, id, reason string) (domain.Summary, error) {
	return s.decide(ctx, actor, id, "incentive_approved", func(incentive *domain.Incentive) (domain.Event, error) {
		return incentive.Approve(reason, s.nowFn())
	})
}

// RejectIncentive marks an incentive as rejected; paid incentives stay paid.
func (s *Service) RejectIncentive(ctx context.Context, actor Actor, id, reason string) (domain.Summary, error) {
	return s.decide(ctx, actor, id, "incentive_rejected", func(incentive *domain.Incentive) (domain.Event, error) {
		return incentive.Reject(reason, s.nowFn())
	})
}

func (s *Service) decide(ctx context.Context, actor Actor, id, action string, mutate func(*domain.Incentive) (domain.Event, error)) (domain.Summary, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Summary{}, domain.ErrUnauthorized
	}
	if !actor.isOperator() {
		return domain.Summary{}, domain.ErrForbidden
	}
	incentive, err := s.loadIncentive(ctx, id)
	if err != nil {
		return domain.Summary{}, err
	}
	event, err := mutate(incentive)
	if err != nil {
		return domain.Summary{}, err
	}
	now := s.nowFn()
	if err := s.incentives.Save(ctx, incentive); err != nil {
		return domain.Summary{}, s.internalFailure(ctx, "save_incentive", err)
	}
	if err := s.publishEvents(ctx, []domain.Event{event}); err != nil {
		return domain.Summary{}, s.internalFailure(ctx, "publish_incentive_events", err)
	}
	s.appendAudit(ctx, ports.AuditRecord{
		LogID:       uuid.NewString(),
		IncentiveID: incentive.ID,
		RecipientIP: incentive.Recipient.IP,
		Action:      action,
		Amount:      incentive.Reward.Amount,
		CreatedAt:   now,
		Metadata:    map[string]string{"actor": actor.SubjectID, "status": string(incentive.Status)},
	})
	return incentive.Summarize(now), nil
}

// GetIncentive returns the read projection for one incentive.
func (s *Service) GetIncentive(ctx context.Context, actor Actor, id string) (domain.Summary, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Summary{}, domain.ErrUnauthorized
	}
	incentive, err := s.loadIncentive(ctx, id)
	if err != nil {
		return domain.Summary{}, err
	}
	return incentive.Summarize(s.nowFn()), nil
}

func (s *Service) loadIncentive(ctx context.Context, id string) (*domain.Incentive, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: missing incentive id", domain.ErrInvalidInput)
	}
	incentive, err := s.incentives.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: incentive %s", domain.ErrNotFound, id)
		}
		return nil, s.internalFailure(ctx, "find_incentive", err)
	}
	return incentive, nil
}

// todayCount prefers the usage tracker fast path and falls back to the
// repository, which stays the source of truth.
func (s *Service) todayCount(ctx context.Context, ip string, now time.Time) (int, error) {
	count, found, err := s.usage.TodayCount(ctx, ip, now)
	if err != nil {
		s.auditLog.LogError(ctx, "usage_tracker_read_failed", map[string]any{"ip": ip, "error": err.Error()})
	} else if found {
		return count, nil
	}
	return s.incentives.CountToday(ctx, ip, now)
}

func hashPayload(value any) string {
	blob, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}
