package domain

import "time"

// Policy is the immutable rule configuration injected into every rule
// evaluation. Tests exercise alternate policies without touching globals.
type Policy struct {
	DailyLimitPerIP int

	MinQualityScore      float64
	StandardQualityScore float64
	HighQualityScore     float64

	BasicReward    float64
	StandardReward float64
	HighReward     float64
	ReferralReward float64

	MinPayoutAmount float64
	MaxRewardAmount float64

	PaymentWindow time.Duration

	BatchMaxSize               int
	BatchTotalWarningThreshold float64
}

func DefaultPolicy() Policy {
	return Policy{
		DailyLimitPerIP:            3,
		MinQualityScore:            50,
		StandardQualityScore:       70,
		HighQualityScore:           90,
		BasicReward:                3,
		StandardReward:             5,
		HighReward:                 8,
		ReferralReward:             3,
		MinPayoutAmount:            5,
		MaxRewardAmount:            100,
		PaymentWindow:              30 * 24 * time.Hour,
		BatchMaxSize:               100,
		BatchTotalWarningThreshold: 10000,
	}
}

// QuestionnaireReward maps a quality score onto the reward tiers and the
// human-readable calculation method recorded on the reward.
func (p Policy) QuestionnaireReward(qualityScore float64) (float64, string) {
	switch {
	case qualityScore >= p.HighQualityScore:
		return p.HighReward, "high quality bonus"
	case qualityScore >= p.StandardQualityScore:
		return p.StandardReward, "standard reward"
	case qualityScore >= p.MinQualityScore:
		return p.BasicReward, "basic reward"
	default:
		return 0, "not eligible"
	}
}

// PaymentWindowDays is the expiry horizon in whole days.
func (p Policy) PaymentWindowDays() int {
	return int(p.PaymentWindow.Hours() / 24)
}
