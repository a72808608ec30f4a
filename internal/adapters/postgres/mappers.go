package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/domain"
)

func toIncentiveModel(incentive *domain.Incentive) (incentiveModel, error) {
	contact, err := json.Marshal(incentive.Recipient.Contact)
	if err != nil {
		return incentiveModel{}, fmt.Errorf("encode contact info: %w", err)
	}
	var triggerData []byte
	switch incentive.Trigger.Type {
	case domain.TriggerQuestionnaire:
		triggerData, err = json.Marshal(incentive.Trigger.Questionnaire)
	case domain.TriggerReferral:
		triggerData, err = json.Marshal(incentive.Trigger.Referral)
	default:
		err = fmt.Errorf("%w: unknown trigger type %q", domain.ErrInvalidInput, incentive.Trigger.Type)
	}
	if err != nil {
		return incentiveModel{}, err
	}
	return incentiveModel{
		IncentiveID:        incentive.ID,
		RecipientIP:        incentive.Recipient.IP,
		ContactInfo:        string(contact),
		VerificationStatus: incentive.Recipient.VerificationStatus,
		RewardAmount:       incentive.Reward.Amount,
		RewardCurrency:     incentive.Reward.Currency,
		RewardType:         string(incentive.Reward.Type),
		CalculationMethod:  incentive.Reward.CalculationMethod,
		TriggerType:        string(incentive.Trigger.Type),
		TriggerData:        string(triggerData),
		QualifiedAt:        incentive.Trigger.QualifiedAt.UTC(),
		Status:             string(incentive.Status),
		CreatedAt:          incentive.CreatedAt.UTC(),
		ProcessedAt:        utcOrNil(incentive.ProcessedAt),
		PaidAt:             utcOrNil(incentive.PaidAt),
	}, nil
}

// toDomainIncentive decodes the trigger union once at the persistence
// boundary; malformed rows surface as invalid input, not runtime surprises.
func toDomainIncentive(model incentiveModel) (*domain.Incentive, error) {
	var contact domain.ContactInfo
	if model.ContactInfo != "" {
		if err := json.Unmarshal([]byte(model.ContactInfo), &contact); err != nil {
			return nil, fmt.Errorf("decode contact info: %w", err)
		}
	}
	trigger := domain.Trigger{
		Type:        domain.TriggerType(model.TriggerType),
		QualifiedAt: model.QualifiedAt,
	}
	switch trigger.Type {
	case domain.TriggerQuestionnaire:
		payload := &domain.QuestionnaireTrigger{}
		if err := json.Unmarshal([]byte(model.TriggerData), payload); err != nil {
			return nil, fmt.Errorf("decode questionnaire trigger: %w", err)
		}
		trigger.Questionnaire = payload
	case domain.TriggerReferral:
		payload := &domain.ReferralTrigger{}
		if err := json.Unmarshal([]byte(model.TriggerData), payload); err != nil {
			return nil, fmt.Errorf("decode referral trigger: %w", err)
		}
		trigger.Referral = payload
	default:
		return nil, fmt.Errorf("%w: unknown trigger type %q", domain.ErrInvalidInput, model.TriggerType)
	}
	return domain.Restore(domain.Incentive{
		ID: model.IncentiveID,
		Recipient: domain.Recipient{
			IP:                 model.RecipientIP,
			Contact:            contact,
			VerificationStatus: model.VerificationStatus,
		},
		Reward: domain.Reward{
			Amount:            model.RewardAmount,
			Currency:          model.RewardCurrency,
			Type:              domain.RewardType(model.RewardType),
			CalculationMethod: model.CalculationMethod,
		},
		Trigger:     trigger,
		Status:      domain.Status(model.Status),
		CreatedAt:   model.CreatedAt,
		ProcessedAt: model.ProcessedAt,
		PaidAt:      model.PaidAt,
	})
}

func utcOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
