package domain

import (
	"fmt"
	"strings"
	"time"
)

// EligibilityResult is the outcome of the creation gate. ExpectedReward is the
// amount the factory would grant, computed from the same tiering policy.
type EligibilityResult struct {
	Eligible       bool
	Errors         []string
	ExpectedReward float64
}

// CanCreateIncentive gates creation on IP format, the per-IP daily cap, and
// trigger-specific requirements.
func CanCreateIncentive(policy Policy, ip string, trigger Trigger, todayCountForIP int) EligibilityResult {
	var errs []string
	if !ValidIPv4(ip) {
		errs = append(errs, "invalid ip address format")
	}
	if todayCountForIP >= policy.DailyLimitPerIP {
		errs = append(errs, fmt.Sprintf("daily incentive limit reached (%d per ip)", policy.DailyLimitPerIP))
	}
	expected := 0.0
	switch trigger.Type {
	case TriggerQuestionnaire:
		if trigger.Questionnaire == nil {
			errs = append(errs, "missing questionnaire trigger data")
			break
		}
		if strings.TrimSpace(trigger.Questionnaire.QuestionnaireID) == "" {
			errs = append(errs, "questionnaire id is required")
		}
		score := trigger.Questionnaire.QualityScore
		if score < 0 || score > 100 {
			errs = append(errs, "quality score must be within [0, 100]")
		} else if score < policy.MinQualityScore {
			errs = append(errs, fmt.Sprintf("quality score below minimum qualifying score (%.0f)", policy.MinQualityScore))
		} else {
			expected, _ = policy.QuestionnaireReward(score)
		}
	case TriggerReferral:
		if trigger.Referral == nil {
			errs = append(errs, "missing referral trigger data")
			break
		}
		if !ValidIPv4(trigger.Referral.ReferredIP) {
			errs = append(errs, "invalid referred ip address")
		}
		if trigger.Referral.ReferredIP == ip {
			errs = append(errs, "Cannot refer yourself")
		}
		if len(errs) == 0 {
			expected = policy.ReferralReward
		}
	default:
		errs = append(errs, fmt.Sprintf("unsupported trigger type %q", trigger.Type))
	}
	return EligibilityResult{Eligible: len(errs) == 0, Errors: errs, ExpectedReward: expected}
}

type PaymentEligibility struct {
	Eligible bool
	Errors   []string
}

// CanPayIncentive gates a single payment attempt on status, payout bounds and
// the payment window.
func CanPayIncentive(policy Policy, incentive *Incentive, now time.Time) PaymentEligibility {
	var errs []string
	if incentive.Status != StatusApproved {
		errs = append(errs, fmt.Sprintf("incentive must be approved, current status %s", incentive.Status))
	}
	if incentive.Reward.Amount < policy.MinPayoutAmount {
		errs = append(errs, fmt.Sprintf("reward amount below minimum payout threshold (%.0f)", policy.MinPayoutAmount))
	}
	if incentive.Reward.Amount > policy.MaxRewardAmount {
		errs = append(errs, fmt.Sprintf("reward amount exceeds maximum (%.0f)", policy.MaxRewardAmount))
	}
	if now.Sub(incentive.CreatedAt) > policy.PaymentWindow {
		errs = append(errs, fmt.Sprintf("incentive older than payment window (%d days)", policy.PaymentWindowDays()))
	}
	return PaymentEligibility{Eligible: len(errs) == 0, Errors: errs}
}

// ValidatePaymentMethodCompatibility checks that the recipient's contact info
// carries the channel the chosen method settles through.
func ValidatePaymentMethodCompatibility(method PaymentMethod, contact ContactInfo) error {
	switch method {
	case PaymentMethodWeChatPay:
		if strings.TrimSpace(contact.WeChat) == "" {
			return fmt.Errorf("%w: wechat pay requires a wechat id", ErrInvalidInput)
		}
	case PaymentMethodAlipay:
		if strings.TrimSpace(contact.Alipay) == "" {
			return fmt.Errorf("%w: alipay requires an alipay account", ErrInvalidInput)
		}
	case PaymentMethodBankTransfer:
		if strings.TrimSpace(contact.Phone) == "" && strings.TrimSpace(contact.Email) == "" {
			return fmt.Errorf("%w: bank transfer requires a phone or email", ErrInvalidInput)
		}
	case PaymentMethodManual:
		if !contact.IsValid() {
			return fmt.Errorf("%w: manual payment requires valid contact info", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unsupported payment method %q", ErrInvalidInput, method)
	}
	return nil
}

// BatchValidation summarises a batch of payment candidates. Warnings are
// advisory and never block the batch.
type BatchValidation struct {
	Valid        bool
	Errors       []string
	Warnings     []string
	ValidCount   int
	PayableTotal float64
}

func ValidateBatchPayment(policy Policy, incentives []*Incentive, now time.Time) BatchValidation {
	if len(incentives) == 0 {
		return BatchValidation{Errors: []string{"batch must contain at least one incentive"}}
	}
	if len(incentives) > policy.BatchMaxSize {
		return BatchValidation{Errors: []string{fmt.Sprintf("batch size exceeds maximum (%d)", policy.BatchMaxSize)}}
	}
	result := BatchValidation{Valid: true}
	for _, incentive := range incentives {
		eligibility := CanPayIncentive(policy, incentive, now)
		if !eligibility.Eligible {
			continue
		}
		result.ValidCount++
		result.PayableTotal += incentive.Reward.Amount
	}
	if result.PayableTotal > policy.BatchTotalWarningThreshold {
		result.Warnings = append(result.Warnings, fmt.Sprintf("batch total %.2f exceeds advisory threshold %.2f", result.PayableTotal, policy.BatchTotalWarningThreshold))
	}
	return result
}
