package domain

import (
	"testing"
	"time"
)

func TestCalculateProcessingPriority(t *testing.T) {
	t.Parallel()
	policy := DefaultPolicy()
	now := testTime()

	t.Run("fresh approved high reward", func(t *testing.T) {
		t.Parallel()
		incentive, _, _ := NewQuestionnaireIncentive(policy, "10.0.0.1", "q-1", 95, testContact, now)
		assessment := CalculateProcessingPriority(policy, incentive, now)
		// 30 reward + 5 age + 20 approved, far from expiry.
		if assessment.Score != 55 {
			t.Fatalf("score = %d, want 55", assessment.Score)
		}
		if assessment.Level != PriorityMedium {
			t.Fatalf("level = %s, want medium", assessment.Level)
		}
	})

	t.Run("aging raises priority", func(t *testing.T) {
		t.Parallel()
		incentive, _, _ := NewQuestionnaireIncentive(policy, "10.0.0.1", "q-1", 95, testContact, now)
		aged := CalculateProcessingPriority(policy, incentive, now.Add(8*24*time.Hour))
		fresh := CalculateProcessingPriority(policy, incentive, now)
		if aged.Score <= fresh.Score {
			t.Fatalf("aged score %d not above fresh score %d", aged.Score, fresh.Score)
		}
	})

	t.Run("near expiry is urgent and capped", func(t *testing.T) {
		t.Parallel()
		incentive, _, _ := NewQuestionnaireIncentive(policy, "10.0.0.1", "q-1", 95, testContact, now)
		late := now.Add(29 * 24 * time.Hour)
		assessment := CalculateProcessingPriority(policy, incentive, late)
		// 30 reward + 25 age + 20 approved + 25 expiry risk caps at 100.
		if assessment.Score != 100 {
			t.Fatalf("score = %d, want capped 100", assessment.Score)
		}
		if assessment.Level != PriorityUrgent {
			t.Fatalf("level = %s, want urgent", assessment.Level)
		}
	})

	t.Run("pending basic reward stays low", func(t *testing.T) {
		t.Parallel()
		incentive, _, _ := NewQuestionnaireIncentive(policy, "10.0.0.1", "q-1", 55, testContact, now)
		assessment := CalculateProcessingPriority(policy, incentive, now)
		// 10 reward + 5 age + 10 pending.
		if assessment.Score != 25 {
			t.Fatalf("score = %d, want 25", assessment.Score)
		}
		if assessment.Level != PriorityLow {
			t.Fatalf("level = %s, want low", assessment.Level)
		}
	})
}

func TestPriorityLevelThresholds(t *testing.T) {
	t.Parallel()
	cases := []struct {
		score int
		want  PriorityLevel
	}{
		{0, PriorityLow},
		{39, PriorityLow},
		{40, PriorityMedium},
		{59, PriorityMedium},
		{60, PriorityHigh},
		{79, PriorityHigh},
		{80, PriorityUrgent},
		{100, PriorityUrgent},
	}
	for _, tc := range cases {
		if got := priorityLevel(tc.score); got != tc.want {
			t.Fatalf("priorityLevel(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}
