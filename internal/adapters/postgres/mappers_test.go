package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/domain"
)

func TestIncentiveMapperRoundTrip(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	policy := domain.DefaultPolicy()
	contact := domain.ContactInfo{WeChat: "wechat_user_1", Email: "user@example.com"}

	questionnaire, _, err := domain.NewQuestionnaireIncentive(policy, "10.0.0.1", "q-77", 92, contact, now)
	if err != nil {
		t.Fatalf("setup questionnaire: %v", err)
	}
	referral, _, err := domain.NewReferralIncentive(policy, "10.0.0.1", "10.0.0.2", contact, now)
	if err != nil {
		t.Fatalf("setup referral: %v", err)
	}

	for _, incentive := range []*domain.Incentive{questionnaire, referral} {
		model, err := toIncentiveModel(incentive)
		if err != nil {
			t.Fatalf("toIncentiveModel(%s): %v", incentive.Trigger.Type, err)
		}
		restored, err := toDomainIncentive(model)
		if err != nil {
			t.Fatalf("toDomainIncentive(%s): %v", incentive.Trigger.Type, err)
		}
		if restored.ID != incentive.ID || restored.Status != incentive.Status {
			t.Fatalf("identity lost: %+v vs %+v", restored, incentive)
		}
		if restored.Reward != incentive.Reward {
			t.Fatalf("reward changed: %+v vs %+v", restored.Reward, incentive.Reward)
		}
		if restored.Recipient.Contact != incentive.Recipient.Contact {
			t.Fatalf("contact changed: %+v vs %+v", restored.Recipient.Contact, incentive.Recipient.Contact)
		}
		if restored.Trigger.Type != incentive.Trigger.Type {
			t.Fatalf("trigger type changed: %s vs %s", restored.Trigger.Type, incentive.Trigger.Type)
		}
	}

	if questionnaire.Trigger.Questionnaire == nil || referral.Trigger.Referral == nil {
		t.Fatal("trigger payload dropped")
	}
}

func TestToDomainIncentiveRejectsUnknownTrigger(t *testing.T) {
	t.Parallel()
	model := incentiveModel{
		IncentiveID:    "incentive_x",
		RecipientIP:    "10.0.0.1",
		ContactInfo:    `{"wechat":"wechat_user_1"}`,
		RewardAmount:   5,
		RewardCurrency: "CNY",
		RewardType:     string(domain.RewardTypeQuestionnaire),
		TriggerType:    "lottery_win",
		TriggerData:    `{}`,
		QualifiedAt:    time.Now().UTC(),
		Status:         string(domain.StatusApproved),
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := toDomainIncentive(model); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
