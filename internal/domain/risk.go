package domain

import "time"

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// UsageHistory summarises recent incentive activity for one IP.
type UsageHistory struct {
	DailyCount            int `json:"daily_count"`
	WeeklyCount           int `json:"weekly_count"`
	ConsecutiveActiveDays int `json:"consecutive_active_days"`
}

type RiskAssessment struct {
	Score              int       `json:"score"`
	Level              RiskLevel `json:"level"`
	Factors            []string  `json:"factors,omitempty"`
	RecommendedActions []string  `json:"recommended_actions"`
}

// GenerateRiskAssessment scores potentially abusive usage patterns. Each
// factor contributes independently and the total is capped at 100.
func GenerateRiskAssessment(policy Policy, incentive *Incentive, usage UsageHistory, now time.Time) RiskAssessment {
	score := 0
	var factors []string

	if incentive.Reward.Amount >= policy.MaxRewardAmount*0.5 {
		score += 30
		factors = append(factors, "reward amount at or above half the maximum")
	}
	if policy.DailyLimitPerIP > 0 && float64(usage.DailyCount) >= float64(policy.DailyLimitPerIP)*0.8 {
		score += 25
		factors = append(factors, "daily usage near the per-ip cap")
	}
	if usage.WeeklyCount >= policy.DailyLimitPerIP*5 {
		score += 20
		factors = append(factors, "elevated weekly usage")
	}
	if usage.ConsecutiveActiveDays >= 5 {
		score += 15
		factors = append(factors, "sustained daily activity")
	}
	elapsed := now.Sub(incentive.CreatedAt)
	if elapsed >= time.Duration(float64(policy.PaymentWindow)*0.9) {
		score += 10
		factors = append(factors, "near payment window expiry")
	}
	if score > 100 {
		score = 100
	}
	level := riskLevel(score)
	return RiskAssessment{
		Score:              score,
		Level:              level,
		Factors:            factors,
		RecommendedActions: recommendedActions(level),
	}
}

func riskLevel(score int) RiskLevel {
	switch {
	case score >= 75:
		return RiskCritical
	case score >= 50:
		return RiskHigh
	case score >= 25:
		return RiskMedium
	default:
		return RiskLow
	}
}

func recommendedActions(level RiskLevel) []string {
	switch level {
	case RiskCritical:
		return []string{"require manual approval", "flag for audit review", "verify recipient identity"}
	case RiskHigh:
		return []string{"require additional verification", "flag for audit review"}
	case RiskMedium:
		return []string{"require additional verification"}
	default:
		return []string{"standard processing"}
	}
}
