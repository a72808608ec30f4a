package ports

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/domain"
)

// TimeRange bounds a query window. Zero bounds are open ended.
type TimeRange struct {
	From time.Time
	To   time.Time
}

func (r TimeRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

type IncentiveRepository interface {
	Save(ctx context.Context, incentive *domain.Incentive) error
	FindByID(ctx context.Context, id string) (*domain.Incentive, error)
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Incentive, error)
	FindByIP(ctx context.Context, ip string, within *TimeRange) ([]*domain.Incentive, error)
	FindAll(ctx context.Context, within *TimeRange) ([]*domain.Incentive, error)
	FindPending(ctx context.Context, status *domain.Status, limit int) ([]*domain.Incentive, error)
	FindReferral(ctx context.Context, referrerIP, referredIP string) (*domain.Incentive, error)
	CountToday(ctx context.Context, ip string, now time.Time) (int, error)
	DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error)
}

type AuditRecord struct {
	LogID       string
	IncentiveID string
	RecipientIP string
	Action      string
	Amount      float64
	CreatedAt   time.Time
	Metadata    map[string]string
}

type AuditLogRepository interface {
	Append(ctx context.Context, record AuditRecord) error
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
}

type OutboxRecord struct {
	RecordID  string
	Envelope  contracts.EventEnvelope
	CreatedAt time.Time
	SentAt    *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, record OutboxRecord) error
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, recordID string, at time.Time) error
}
