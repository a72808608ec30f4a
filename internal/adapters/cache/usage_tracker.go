package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/domain"
)

const usageKeyTTL = 8 * 24 * time.Hour

// UsageTracker keeps per-IP daily counters in redis under one key per UTC day.
// Weekly and streak figures derive from the trailing seven daily keys.
type UsageTracker struct {
	client *redis.Client
	prefix string
}

func NewUsageTracker(client *redis.Client, prefix string) *UsageTracker {
	if prefix == "" {
		prefix = "incentive:usage"
	}
	return &UsageTracker{client: client, prefix: prefix}
}

func (t *UsageTracker) key(ip string, day time.Time) string {
	return fmt.Sprintf("%s:%s:%s", t.prefix, ip, day.UTC().Format("2006-01-02"))
}

func (t *UsageTracker) RecordIncentive(ctx context.Context, ip string, now time.Time) error {
	key := t.key(ip, now)
	pipe := t.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, usageKeyTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (t *UsageTracker) TodayCount(ctx context.Context, ip string, now time.Time) (int, bool, error) {
	count, err := t.client.Get(ctx, t.key(ip, now)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

func (t *UsageTracker) History(ctx context.Context, ip string, now time.Time) (domain.UsageHistory, error) {
	keys := make([]string, 0, 7)
	for offset := 0; offset < 7; offset++ {
		keys = append(keys, t.key(ip, now.AddDate(0, 0, -offset)))
	}
	values, err := t.client.MGet(ctx, keys...).Result()
	if err != nil {
		return domain.UsageHistory{}, err
	}
	history := domain.UsageHistory{}
	streakBroken := false
	for offset, raw := range values {
		count := parseCount(raw)
		history.WeeklyCount += count
		if offset == 0 {
			history.DailyCount = count
		}
		if count > 0 && !streakBroken {
			history.ConsecutiveActiveDays++
		} else {
			streakBroken = true
		}
	}
	return history, nil
}

func parseCount(raw any) int {
	text, ok := raw.(string)
	if !ok {
		return 0
	}
	var count int
	if _, err := fmt.Sscanf(text, "%d", &count); err != nil {
		return 0
	}
	return count
}
