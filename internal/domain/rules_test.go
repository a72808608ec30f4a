package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func questionnaireTrigger(score float64) Trigger {
	return Trigger{
		Type:          TriggerQuestionnaire,
		Questionnaire: &QuestionnaireTrigger{QuestionnaireID: "q-1", QualityScore: score},
		QualifiedAt:   testTime(),
	}
}

func TestCanCreateIncentiveDailyCap(t *testing.T) {
	t.Parallel()
	policy := DefaultPolicy()

	// Third creation of the day still passes, the fourth hits the cap.
	result := CanCreateIncentive(policy, "10.0.0.1", questionnaireTrigger(80), policy.DailyLimitPerIP-1)
	if !result.Eligible {
		t.Fatalf("creation under the cap rejected: %v", result.Errors)
	}
	result = CanCreateIncentive(policy, "10.0.0.1", questionnaireTrigger(80), policy.DailyLimitPerIP)
	if result.Eligible {
		t.Fatal("creation at the cap allowed")
	}
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0], "daily incentive limit") {
		t.Fatalf("errors = %v, want daily limit violation", result.Errors)
	}
}

func TestCanCreateIncentiveCollectsAllViolations(t *testing.T) {
	t.Parallel()
	policy := DefaultPolicy()

	result := CanCreateIncentive(policy, "bad-ip", questionnaireTrigger(30), policy.DailyLimitPerIP)
	if result.Eligible {
		t.Fatal("expected rejection")
	}
	if len(result.Errors) != 3 {
		t.Fatalf("errors = %v, want ip + cap + score violations", result.Errors)
	}
	if result.ExpectedReward != 0 {
		t.Fatalf("expected reward = %v, want 0", result.ExpectedReward)
	}
}

func TestCanCreateIncentiveExpectedReward(t *testing.T) {
	t.Parallel()
	policy := DefaultPolicy()

	result := CanCreateIncentive(policy, "10.0.0.1", questionnaireTrigger(92), 0)
	if !result.Eligible || result.ExpectedReward != policy.HighReward {
		t.Fatalf("result = %+v, want eligible with high reward", result)
	}

	referral := Trigger{
		Type:        TriggerReferral,
		Referral:    &ReferralTrigger{ReferrerIP: "10.0.0.1", ReferredIP: "10.0.0.2"},
		QualifiedAt: testTime(),
	}
	result = CanCreateIncentive(policy, "10.0.0.1", referral, 0)
	if !result.Eligible || result.ExpectedReward != policy.ReferralReward {
		t.Fatalf("result = %+v, want eligible with referral reward", result)
	}
}

func TestCanCreateIncentiveSelfReferral(t *testing.T) {
	t.Parallel()
	policy := DefaultPolicy()
	trigger := Trigger{
		Type:        TriggerReferral,
		Referral:    &ReferralTrigger{ReferrerIP: "10.0.0.1", ReferredIP: "10.0.0.1"},
		QualifiedAt: testTime(),
	}
	result := CanCreateIncentive(policy, "10.0.0.1", trigger, 0)
	if result.Eligible {
		t.Fatal("self referral allowed")
	}
	found := false
	for _, violation := range result.Errors {
		if violation == "Cannot refer yourself" {
			found = true
		}
	}
	if !found {
		t.Fatalf("errors = %v, want self-referral violation", result.Errors)
	}
}

func TestCanPayIncentive(t *testing.T) {
	t.Parallel()
	policy := DefaultPolicy()
	now := testTime()

	payable, _, _ := NewQuestionnaireIncentive(policy, "10.0.0.1", "q-1", 75, testContact, now)
	if result := CanPayIncentive(policy, payable, now); !result.Eligible {
		t.Fatalf("approved standard incentive not payable: %v", result.Errors)
	}

	// Basic tier reward (3) sits below the payout floor.
	small, _, _ := NewQuestionnaireIncentive(policy, "10.0.0.1", "q-2", 55, testContact, now)
	if _, err := small.Approve("reviewed", now); err != nil {
		t.Fatalf("setup approve: %v", err)
	}
	result := CanPayIncentive(policy, small, now)
	if result.Eligible {
		t.Fatal("below-minimum reward payable")
	}
	if !strings.Contains(strings.Join(result.Errors, "; "), "minimum payout threshold (5)") {
		t.Fatalf("errors = %v, want minimum payout violation", result.Errors)
	}

	// Pending incentives and stale incentives both fail.
	pending, _, _ := NewQuestionnaireIncentive(policy, "10.0.0.1", "q-3", 55, testContact, now)
	if result := CanPayIncentive(policy, pending, now); result.Eligible {
		t.Fatal("pending incentive payable")
	}
	stale, _, _ := NewQuestionnaireIncentive(policy, "10.0.0.1", "q-4", 75, testContact, now)
	if result := CanPayIncentive(policy, stale, now.Add(policy.PaymentWindow+time.Minute)); result.Eligible {
		t.Fatal("stale incentive payable")
	}
}

func TestValidatePaymentMethodCompatibility(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		method  PaymentMethod
		contact ContactInfo
		wantErr bool
	}{
		{"wechat ok", PaymentMethodWeChatPay, ContactInfo{WeChat: "wechat_user_1"}, false},
		{"wechat missing", PaymentMethodWeChatPay, ContactInfo{Alipay: "a@b.com"}, true},
		{"alipay ok", PaymentMethodAlipay, ContactInfo{Alipay: "pay@example.com"}, false},
		{"alipay missing", PaymentMethodAlipay, ContactInfo{WeChat: "wechat_user_1"}, true},
		{"bank via phone", PaymentMethodBankTransfer, ContactInfo{Phone: "13812345678"}, false},
		{"bank via email", PaymentMethodBankTransfer, ContactInfo{Email: "user@example.com"}, false},
		{"bank missing", PaymentMethodBankTransfer, ContactInfo{WeChat: "wechat_user_1"}, true},
		{"manual needs valid contact", PaymentMethodManual, ContactInfo{}, true},
		{"unknown method", PaymentMethod("cash"), ContactInfo{Phone: "13812345678"}, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidatePaymentMethodCompatibility(tc.method, tc.contact)
			if tc.wantErr && !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
		})
	}
}

func TestValidateBatchPayment(t *testing.T) {
	t.Parallel()
	policy := DefaultPolicy()
	now := testTime()

	if result := ValidateBatchPayment(policy, nil, now); result.Valid || len(result.Errors) == 0 {
		t.Fatalf("empty batch = %+v, want error", result)
	}

	oversized := make([]*Incentive, policy.BatchMaxSize+1)
	for i := range oversized {
		incentive, _, _ := NewQuestionnaireIncentive(policy, "10.0.0.1", "q-1", 75, testContact, now)
		oversized[i] = incentive
	}
	if result := ValidateBatchPayment(policy, oversized, now); result.Valid {
		t.Fatal("oversized batch passed")
	}

	payable, _, _ := NewQuestionnaireIncentive(policy, "10.0.0.1", "q-1", 95, testContact, now)
	unpayable, _, _ := NewQuestionnaireIncentive(policy, "10.0.0.2", "q-2", 55, testContact, now)
	result := ValidateBatchPayment(policy, []*Incentive{payable, unpayable}, now)
	if !result.Valid {
		t.Fatalf("mixed batch invalid: %v", result.Errors)
	}
	if result.ValidCount != 1 || result.PayableTotal != policy.HighReward {
		t.Fatalf("result = %+v, want one payable item worth %v", result, policy.HighReward)
	}
}

func TestValidateBatchPaymentAdvisoryWarning(t *testing.T) {
	t.Parallel()
	policy := DefaultPolicy()
	policy.BatchTotalWarningThreshold = 10
	now := testTime()

	first, _, _ := NewQuestionnaireIncentive(policy, "10.0.0.1", "q-1", 95, testContact, now)
	second, _, _ := NewQuestionnaireIncentive(policy, "10.0.0.2", "q-2", 95, testContact, now)
	result := ValidateBatchPayment(policy, []*Incentive{first, second}, now)
	if !result.Valid {
		t.Fatalf("batch invalid: %v", result.Errors)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("warnings = %v, want single advisory warning", result.Warnings)
	}
}
