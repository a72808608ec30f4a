package application

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/ports"
)

// GetIncentiveStatistics computes per-IP aggregates when ip is given and
// system-wide aggregates otherwise.
func (s *Service) GetIncentiveStatistics(ctx context.Context, actor Actor, ip string, within *ports.TimeRange) (StatisticsOutput, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return StatisticsOutput{}, domain.ErrUnauthorized
	}
	if !actor.isOperator() {
		return StatisticsOutput{}, domain.ErrForbidden
	}
	ip = strings.TrimSpace(ip)
	if ip != "" {
		if !domain.ValidIPv4(ip) {
			return StatisticsOutput{}, fmt.Errorf("%w: invalid ip address format", domain.ErrInvalidInput)
		}
		incentives, err := s.incentives.FindByIP(ctx, ip, within)
		if err != nil {
			return StatisticsOutput{}, s.internalFailure(ctx, "find_incentives_by_ip", err)
		}
		stats := s.ipStatistics(ip, incentives)
		return StatisticsOutput{IP: &stats}, nil
	}
	incentives, err := s.incentives.FindAll(ctx, within)
	if err != nil {
		return StatisticsOutput{}, s.internalFailure(ctx, "find_all_incentives", err)
	}
	stats := s.systemStatistics(incentives)
	return StatisticsOutput{System: &stats}, nil
}

func (s *Service) ipStatistics(ip string, incentives []*domain.Incentive) IPStatistics {
	stats := IPStatistics{IP: ip, ByStatus: make(map[domain.Status]int)}
	for _, incentive := range incentives {
		stats.Total++
		stats.ByStatus[incentive.Status]++
		stats.TotalAmount += incentive.Reward.Amount
		switch incentive.Status {
		case domain.StatusPaid:
			stats.PaidAmount += incentive.Reward.Amount
		case domain.StatusPendingValidation, domain.StatusApproved:
			stats.PendingAmount += incentive.Reward.Amount
		}
		if stats.MostRecentAt == nil || incentive.CreatedAt.After(*stats.MostRecentAt) {
			createdAt := incentive.CreatedAt
			stats.MostRecentAt = &createdAt
		}
	}
	if stats.Total > 0 {
		stats.AverageReward = stats.TotalAmount / float64(stats.Total)
	}
	return stats
}

func (s *Service) systemStatistics(incentives []*domain.Incentive) SystemStatistics {
	stats := SystemStatistics{ByStatus: make(map[domain.Status]int)}
	recipients := make(map[string]struct{})
	paid := 0
	for _, incentive := range incentives {
		stats.Total++
		stats.ByStatus[incentive.Status]++
		stats.TotalAmount += incentive.Reward.Amount
		recipients[incentive.Recipient.IP] = struct{}{}
		if incentive.Status == domain.StatusPaid {
			paid++
			stats.PaidAmount += incentive.Reward.Amount
		}
	}
	stats.UniqueRecipients = len(recipients)
	if stats.Total > 0 {
		stats.ConversionRate = float64(paid) / float64(stats.Total) * 100
	}
	return stats
}

// GetPendingIncentives returns the processing queue ordered by priority score,
// highest first, stable on equal scores with respect to repository order.
func (s *Service) GetPendingIncentives(ctx context.Context, actor Actor, status *domain.Status, limit int) ([]PrioritizedIncentive, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return nil, domain.ErrUnauthorized
	}
	if !actor.isOperator() {
		return nil, domain.ErrForbidden
	}
	if limit <= 0 {
		limit = s.cfg.DefaultPendingLimit
	}
	incentives, err := s.incentives.FindPending(ctx, status, limit)
	if err != nil {
		return nil, s.internalFailure(ctx, "find_pending_incentives", err)
	}
	now := s.nowFn()
	queue := make([]PrioritizedIncentive, 0, len(incentives))
	for _, incentive := range incentives {
		queue = append(queue, PrioritizedIncentive{
			Summary:  incentive.Summarize(now),
			Priority: domain.CalculateProcessingPriority(s.cfg.Policy, incentive, now),
		})
	}
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].Priority.Score > queue[j].Priority.Score
	})
	return queue, nil
}

// AssessIncentiveRisk scores one incentive against its IP's recent usage.
func (s *Service) AssessIncentiveRisk(ctx context.Context, actor Actor, id string) (domain.RiskAssessment, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.RiskAssessment{}, domain.ErrUnauthorized
	}
	if !actor.isOperator() {
		return domain.RiskAssessment{}, domain.ErrForbidden
	}
	incentive, err := s.loadIncentive(ctx, id)
	if err != nil {
		return domain.RiskAssessment{}, err
	}
	now := s.nowFn()
	usage, err := s.usage.History(ctx, incentive.Recipient.IP, now)
	if err != nil {
		s.auditLog.LogError(ctx, "usage_tracker_history_failed", map[string]any{
			"ip":    incentive.Recipient.IP,
			"error": err.Error(),
		})
		usage = domain.UsageHistory{}
	}
	return domain.GenerateRiskAssessment(s.cfg.Policy, incentive, usage, now), nil
}

// SweepExpired deletes incentives past the payment window. Invoked by the
// background sweeper, exposed for operational use.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	now := s.nowFn()
	deleted, err := s.incentives.DeleteExpired(ctx, now.Add(-s.cfg.Policy.PaymentWindow))
	if err != nil {
		return 0, s.internalFailure(ctx, "delete_expired_incentives", err)
	}
	if deleted > 0 {
		s.auditLog.LogBusinessEvent(ctx, "expired_incentives_deleted", map[string]any{"count": deleted})
	}
	return deleted, nil
}
