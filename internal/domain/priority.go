package domain

import "time"

type PriorityLevel string

const (
	PriorityLow    PriorityLevel = "low"
	PriorityMedium PriorityLevel = "medium"
	PriorityHigh   PriorityLevel = "high"
	PriorityUrgent PriorityLevel = "urgent"
)

type PriorityAssessment struct {
	Score int           `json:"score"`
	Level PriorityLevel `json:"level"`
}

// CalculateProcessingPriority orders the pending-payment queue. Four weighted
// factors, capped at 100: reward tier, pending age, status and expiry risk.
func CalculateProcessingPriority(policy Policy, incentive *Incentive, now time.Time) PriorityAssessment {
	score := 0

	switch {
	case incentive.Reward.Amount >= policy.HighReward:
		score += 30
	case incentive.Reward.Amount >= policy.StandardReward:
		score += 20
	case incentive.Reward.Amount >= policy.BasicReward:
		score += 10
	}

	pendingDays := now.Sub(incentive.CreatedAt).Hours() / 24
	switch {
	case pendingDays >= 7:
		score += 25
	case pendingDays >= 3:
		score += 15
	default:
		score += 5
	}

	switch incentive.Status {
	case StatusApproved:
		score += 20
	case StatusPendingValidation:
		score += 10
	}

	daysUntilExpiry := float64(policy.PaymentWindowDays()) - pendingDays
	switch {
	case daysUntilExpiry <= 3:
		score += 25
	case daysUntilExpiry <= 7:
		score += 15
	}

	if score > 100 {
		score = 100
	}
	return PriorityAssessment{Score: score, Level: priorityLevel(score)}
}

func priorityLevel(score int) PriorityLevel {
	switch {
	case score >= 80:
		return PriorityUrgent
	case score >= 60:
		return PriorityHigh
	case score >= 40:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
