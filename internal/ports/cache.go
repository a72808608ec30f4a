package ports

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/domain"
)

// UsageTracker is the fast path for per-IP activity counters. The repository
// remains the source of truth; callers fall back to it when the tracker has no
// record.
type UsageTracker interface {
	RecordIncentive(ctx context.Context, ip string, now time.Time) error
	TodayCount(ctx context.Context, ip string, now time.Time) (int, bool, error)
	History(ctx context.Context, ip string, now time.Time) (domain.UsageHistory, error)
}
