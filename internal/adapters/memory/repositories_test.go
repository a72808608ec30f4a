package memory

import (
	"context"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/domain"
)

func TestUsageTrackerHistory(t *testing.T) {
	t.Parallel()
	tracker := NewUsageTracker()
	ctx := context.Background()
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)

	// Three days of activity ending today, then a gap, then one older burst.
	for day := 0; day < 3; day++ {
		if err := tracker.RecordIncentive(ctx, "10.0.0.1", now.AddDate(0, 0, -day)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := tracker.RecordIncentive(ctx, "10.0.0.1", now.AddDate(0, 0, -5)); err != nil {
		t.Fatalf("record: %v", err)
	}

	history, err := tracker.History(ctx, "10.0.0.1", now)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if history.DailyCount != 1 || history.WeeklyCount != 4 {
		t.Fatalf("history = %+v, want daily 1 weekly 4", history)
	}
	if history.ConsecutiveActiveDays != 3 {
		t.Fatalf("streak = %d, want 3 (gap breaks it)", history.ConsecutiveActiveDays)
	}

	count, found, err := tracker.TodayCount(ctx, "10.0.0.1", now)
	if err != nil || !found || count != 1 {
		t.Fatalf("today = %d/%t/%v", count, found, err)
	}
	if _, found, _ := tracker.TodayCount(ctx, "10.0.0.9", now); found {
		t.Fatal("unknown ip reported as tracked")
	}
}

func TestIncentiveRepositoryDeleteExpired(t *testing.T) {
	t.Parallel()
	repos := NewRepositories()
	ctx := context.Background()
	policy := domain.DefaultPolicy()
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)

	old, _, err := domain.NewQuestionnaireIncentive(policy, "10.0.0.1", "q-1", 85, domain.ContactInfo{WeChat: "wechat_user_1"}, now.AddDate(0, 0, -40))
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	oldPaid, _, err := domain.NewQuestionnaireIncentive(policy, "10.0.0.2", "q-2", 85, domain.ContactInfo{WeChat: "wechat_user_1"}, now.AddDate(0, 0, -40))
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if result, _ := oldPaid.ExecutePayment(policy, domain.PaymentMethodWeChatPay, "tx-1", now.AddDate(0, 0, -39)); !result.Succeeded {
		t.Fatalf("setup payment: %s", result.FailureReason)
	}
	fresh, _, err := domain.NewQuestionnaireIncentive(policy, "10.0.0.3", "q-3", 85, domain.ContactInfo{WeChat: "wechat_user_1"}, now)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	for _, incentive := range []*domain.Incentive{old, oldPaid, fresh} {
		if err := repos.Incentives.Save(ctx, incentive); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	deleted, err := repos.Incentives.DeleteExpired(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want only the stale unpaid incentive", deleted)
	}
	if _, err := repos.Incentives.FindByID(ctx, oldPaid.ID); err != nil {
		t.Fatalf("paid incentive removed: %v", err)
	}
}
