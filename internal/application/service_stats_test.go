package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/domain"
)

func TestGetIncentiveStatisticsForIP(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	paid := f.createApproved(t, "10.0.0.1", "q-1", 85)
	if _, err := f.service.ProcessPayment(ctx, operatorActor("pay-1"), paid.ID, domain.PaymentMethodWeChatPay); err != nil {
		t.Fatalf("setup payment: %v", err)
	}
	f.createApproved(t, "10.0.0.1", "q-2", 95)
	f.createApproved(t, "10.0.0.2", "q-3", 85)

	output, err := f.service.GetIncentiveStatistics(ctx, operatorActor(""), "10.0.0.1", nil)
	if err != nil {
		t.Fatalf("GetIncentiveStatistics: %v", err)
	}
	stats := output.IP
	if stats == nil || output.System != nil {
		t.Fatalf("output = %+v, want ip stats only", output)
	}
	if stats.Total != 2 || stats.TotalAmount != 13 {
		t.Fatalf("stats = %+v, want 2 incentives worth 13", stats)
	}
	if stats.PaidAmount != 5 || stats.PendingAmount != 8 {
		t.Fatalf("paid/pending = %v/%v, want 5/8", stats.PaidAmount, stats.PendingAmount)
	}
	if stats.AverageReward != 6.5 {
		t.Fatalf("average = %v, want 6.5", stats.AverageReward)
	}
	if stats.ByStatus[domain.StatusPaid] != 1 || stats.ByStatus[domain.StatusApproved] != 1 {
		t.Fatalf("by status = %v", stats.ByStatus)
	}
	if stats.MostRecentAt == nil {
		t.Fatal("most recent timestamp missing")
	}

	if _, err := f.service.GetIncentiveStatistics(ctx, operatorActor(""), "not-an-ip", nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("bad ip: err = %v, want ErrInvalidInput", err)
	}
	if _, err := f.service.GetIncentiveStatistics(ctx, userActor(""), "", nil); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-operator: err = %v, want ErrForbidden", err)
	}
}

func TestGetIncentiveStatisticsSystemWide(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	paid := f.createApproved(t, "10.0.0.1", "q-1", 85)
	if _, err := f.service.ProcessPayment(ctx, operatorActor("pay-1"), paid.ID, domain.PaymentMethodWeChatPay); err != nil {
		t.Fatalf("setup payment: %v", err)
	}
	f.createApproved(t, "10.0.0.2", "q-2", 95)
	f.createApproved(t, "10.0.0.2", "q-3", 55)
	f.createApproved(t, "10.0.0.3", "q-4", 85)

	output, err := f.service.GetIncentiveStatistics(ctx, operatorActor(""), "", nil)
	if err != nil {
		t.Fatalf("GetIncentiveStatistics: %v", err)
	}
	stats := output.System
	if stats == nil {
		t.Fatal("system stats missing")
	}
	if stats.Total != 4 || stats.UniqueRecipients != 3 {
		t.Fatalf("stats = %+v, want 4 incentives across 3 ips", stats)
	}
	if stats.ConversionRate != 25 {
		t.Fatalf("conversion rate = %v, want 25", stats.ConversionRate)
	}
}

func TestGetPendingIncentivesOrdering(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	// Old high-reward approved, mid-age standard approved, fresh basic pending.
	urgent := f.createApproved(t, "10.0.0.1", "q-1", 95)
	f.advance(25 * 24 * time.Hour)
	high := f.createApproved(t, "10.0.0.2", "q-2", 85)
	f.advance(4 * 24 * time.Hour)
	low := f.createApproved(t, "10.0.0.3", "q-3", 55)

	queue, err := f.service.GetPendingIncentives(ctx, operatorActor(""), nil, 0)
	if err != nil {
		t.Fatalf("GetPendingIncentives: %v", err)
	}
	if len(queue) != 3 {
		t.Fatalf("queue = %d entries, want 3", len(queue))
	}
	if queue[0].Summary.ID != urgent.ID || queue[1].Summary.ID != high.ID || queue[2].Summary.ID != low.ID {
		t.Fatalf("order = %s, %s, %s", queue[0].Summary.ID, queue[1].Summary.ID, queue[2].Summary.ID)
	}
	for i := 1; i < len(queue); i++ {
		if queue[i].Priority.Score > queue[i-1].Priority.Score {
			t.Fatalf("queue not sorted by score: %d before %d", queue[i-1].Priority.Score, queue[i].Priority.Score)
		}
	}
	if queue[0].Priority.Score > 100 {
		t.Fatalf("score %d exceeds cap", queue[0].Priority.Score)
	}

	// Status filter narrows the queue.
	pending := domain.StatusPendingValidation
	filtered, err := f.service.GetPendingIncentives(ctx, operatorActor(""), &pending, 0)
	if err != nil {
		t.Fatalf("filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Summary.ID != low.ID {
		t.Fatalf("filtered = %+v, want only the pending basic incentive", filtered)
	}
}

func TestAssessIncentiveRisk(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	summary := f.createApproved(t, "10.0.0.1", "q-1", 85)

	assessment, err := f.service.AssessIncentiveRisk(ctx, operatorActor(""), summary.ID)
	if err != nil {
		t.Fatalf("AssessIncentiveRisk: %v", err)
	}
	if assessment.Level != domain.RiskLow {
		t.Fatalf("level = %s, want low for quiet usage", assessment.Level)
	}
	if len(assessment.RecommendedActions) == 0 {
		t.Fatal("recommended actions missing")
	}

	if _, err := f.service.AssessIncentiveRisk(ctx, userActor(""), summary.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-operator: err = %v, want ErrForbidden", err)
	}
}

func TestSweepExpired(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	stale := f.createApproved(t, "10.0.0.1", "q-1", 85)
	f.advance(31 * 24 * time.Hour)
	fresh := f.createApproved(t, "10.0.0.2", "q-2", 85)

	deleted, err := f.service.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
	if _, err := f.service.GetIncentive(ctx, userActor(""), stale.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("stale incentive survived: err = %v", err)
	}
	if _, err := f.service.GetIncentive(ctx, userActor(""), fresh.ID); err != nil {
		t.Fatalf("fresh incentive removed: %v", err)
	}
}
