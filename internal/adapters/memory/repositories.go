package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/ports"
)

// Repositories bundles the in-memory adapters used by tests and local runs.
type Repositories struct {
	Incentives  *IncentiveRepository
	Audit       *AuditLogRepository
	Idempotency *IdempotencyRepository
	Outbox      *OutboxRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		Incentives:  &IncentiveRepository{incentives: make(map[string]domain.Incentive)},
		Audit:       &AuditLogRepository{},
		Idempotency: &IdempotencyRepository{records: make(map[string]ports.IdempotencyRecord)},
		Outbox:      &OutboxRepository{records: make(map[string]ports.OutboxRecord)},
	}
}

type IncentiveRepository struct {
	mu         sync.RWMutex
	incentives map[string]domain.Incentive
	order      []string
}

func (r *IncentiveRepository) Save(_ context.Context, incentive *domain.Incentive) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.incentives[incentive.ID]; !exists {
		r.order = append(r.order, incentive.ID)
	}
	r.incentives[incentive.ID] = *incentive
	return nil
}

func (r *IncentiveRepository) FindByID(_ context.Context, id string) (*domain.Incentive, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	incentive, ok := r.incentives[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	restored := incentive
	return &restored, nil
}

func (r *IncentiveRepository) FindByIDs(_ context.Context, ids []string) ([]*domain.Incentive, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	found := make([]*domain.Incentive, 0, len(ids))
	for _, id := range ids {
		if incentive, ok := r.incentives[id]; ok {
			restored := incentive
			found = append(found, &restored)
		}
	}
	return found, nil
}

func (r *IncentiveRepository) FindByIP(_ context.Context, ip string, within *ports.TimeRange) ([]*domain.Incentive, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found []*domain.Incentive
	for _, id := range r.order {
		incentive := r.incentives[id]
		if incentive.Recipient.IP != ip {
			continue
		}
		if within != nil && !within.Contains(incentive.CreatedAt) {
			continue
		}
		restored := incentive
		found = append(found, &restored)
	}
	return found, nil
}

func (r *IncentiveRepository) FindAll(_ context.Context, within *ports.TimeRange) ([]*domain.Incentive, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found []*domain.Incentive
	for _, id := range r.order {
		incentive := r.incentives[id]
		if within != nil && !within.Contains(incentive.CreatedAt) {
			continue
		}
		restored := incentive
		found = append(found, &restored)
	}
	return found, nil
}

func (r *IncentiveRepository) FindPending(_ context.Context, status *domain.Status, limit int) ([]*domain.Incentive, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found []*domain.Incentive
	for _, id := range r.order {
		incentive := r.incentives[id]
		if status != nil {
			if incentive.Status != *status {
				continue
			}
		} else if incentive.Status != domain.StatusPendingValidation && incentive.Status != domain.StatusApproved {
			continue
		}
		restored := incentive
		found = append(found, &restored)
		if limit > 0 && len(found) >= limit {
			break
		}
	}
	return found, nil
}

func (r *IncentiveRepository) FindReferral(_ context.Context, referrerIP, referredIP string) (*domain.Incentive, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		incentive := r.incentives[id]
		referral := incentive.Trigger.Referral
		if referral == nil {
			continue
		}
		if referral.ReferrerIP == referrerIP && referral.ReferredIP == referredIP {
			restored := incentive
			return &restored, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *IncentiveRepository) CountToday(_ context.Context, ip string, now time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	day := now.UTC().Format("2006-01-02")
	for _, incentive := range r.incentives {
		if incentive.Recipient.IP == ip && incentive.CreatedAt.UTC().Format("2006-01-02") == day {
			count++
		}
	}
	return count, nil
}

func (r *IncentiveRepository) DeleteExpired(_ context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, incentive := range r.incentives {
		if !incentive.CreatedAt.Before(olderThan) {
			continue
		}
		if incentive.Status != domain.StatusPendingValidation && incentive.Status != domain.StatusApproved {
			continue
		}
		delete(r.incentives, id)
		r.order = slices.DeleteFunc(r.order, func(existing string) bool { return existing == id })
		deleted++
	}
	return deleted, nil
}

type AuditLogRepository struct {
	mu      sync.Mutex
	records []ports.AuditRecord
}

func (r *AuditLogRepository) Append(_ context.Context, record ports.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *AuditLogRepository) Records() []ports.AuditRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.records)
}

type IdempotencyRepository struct {
	mu      sync.Mutex
	records map[string]ports.IdempotencyRecord
}

func (r *IdempotencyRepository) Get(_ context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[key]
	if !ok || now.After(record.ExpiresAt) || record.ResponseBody == nil {
		return nil, nil
	}
	return &record, nil
}

func (r *IdempotencyRepository) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.records[key]; ok && existing.RequestHash != requestHash {
		return domain.ErrConflict
	}
	r.records[key] = ports.IdempotencyRecord{Key: key, RequestHash: requestHash, ExpiresAt: expiresAt}
	return nil
}

func (r *IdempotencyRepository) Complete(_ context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[key]
	if !ok {
		return domain.ErrNotFound
	}
	record.ResponseCode = responseCode
	record.ResponseBody = responseBody
	r.records[key] = record
	return nil
}

type OutboxRepository struct {
	mu      sync.Mutex
	records map[string]ports.OutboxRecord
	order   []string
}

func (r *OutboxRepository) Enqueue(_ context.Context, record ports.OutboxRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[record.RecordID]; !exists {
		r.order = append(r.order, record.RecordID)
	}
	r.records[record.RecordID] = record
	return nil
}

func (r *OutboxRepository) ListPending(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []ports.OutboxRecord
	for _, id := range r.order {
		record := r.records[id]
		if record.SentAt != nil {
			continue
		}
		pending = append(pending, record)
		if limit > 0 && len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, recordID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	sentAt := at
	record.SentAt = &sentAt
	r.records[recordID] = record
	return nil
}

// UsageTracker is an in-memory stand-in for the redis tracker.
type UsageTracker struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewUsageTracker() *UsageTracker {
	return &UsageTracker{counts: make(map[string]int)}
}

func usageKey(ip string, day time.Time) string {
	return ip + ":" + day.UTC().Format("2006-01-02")
}

func (t *UsageTracker) RecordIncentive(_ context.Context, ip string, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[usageKey(ip, now)]++
	return nil
}

func (t *UsageTracker) TodayCount(_ context.Context, ip string, now time.Time) (int, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	count, ok := t.counts[usageKey(ip, now)]
	return count, ok, nil
}

func (t *UsageTracker) History(_ context.Context, ip string, now time.Time) (domain.UsageHistory, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	history := domain.UsageHistory{}
	day := now.UTC()
	history.DailyCount = t.counts[usageKey(ip, day)]
	consecutive := 0
	counting := true
	for offset := 0; offset < 7; offset++ {
		count := t.counts[usageKey(ip, day.AddDate(0, 0, -offset))]
		history.WeeklyCount += count
		if counting && count > 0 {
			consecutive++
		} else {
			counting = false
		}
	}
	history.ConsecutiveActiveDays = consecutive
	return history, nil
}
