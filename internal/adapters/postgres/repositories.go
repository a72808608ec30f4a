package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Incentives  ports.IncentiveRepository
	Audit       ports.AuditLogRepository
	Idempotency ports.IdempotencyRepository
	Outbox      ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Incentives:  &incentiveRepository{db: db},
		Audit:       &auditLogRepository{db: db},
		Idempotency: &idempotencyRepository{db: db},
		Outbox:      &outboxRepository{db: db},
	}
}

type incentiveRepository struct {
	db *gorm.DB
}

func (r *incentiveRepository) Save(ctx context.Context, incentive *domain.Incentive) error {
	model, err := toIncentiveModel(incentive)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(&model).Error
}

func (r *incentiveRepository) FindByID(ctx context.Context, id string) (*domain.Incentive, error) {
	var model incentiveModel
	err := r.db.WithContext(ctx).Where("incentive_id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomainIncentive(model)
}

func (r *incentiveRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Incentive, error) {
	var models []incentiveModel
	if err := r.db.WithContext(ctx).Where("incentive_id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}
	return toDomainIncentives(models)
}

func (r *incentiveRepository) FindByIP(ctx context.Context, ip string, within *ports.TimeRange) ([]*domain.Incentive, error) {
	query := r.db.WithContext(ctx).Where("recipient_ip = ?", ip).Order("created_at ASC")
	query = applyTimeRange(query, within)
	var models []incentiveModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return toDomainIncentives(models)
}

func (r *incentiveRepository) FindAll(ctx context.Context, within *ports.TimeRange) ([]*domain.Incentive, error) {
	query := applyTimeRange(r.db.WithContext(ctx).Order("created_at ASC"), within)
	var models []incentiveModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return toDomainIncentives(models)
}

func (r *incentiveRepository) FindPending(ctx context.Context, status *domain.Status, limit int) ([]*domain.Incentive, error) {
	query := r.db.WithContext(ctx).Order("created_at ASC")
	if status != nil {
		query = query.Where("status = ?", string(*status))
	} else {
		query = query.Where("status IN ?", []string{string(domain.StatusPendingValidation), string(domain.StatusApproved)})
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []incentiveModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return toDomainIncentives(models)
}

func (r *incentiveRepository) FindReferral(ctx context.Context, referrerIP, referredIP string) (*domain.Incentive, error) {
	var model incentiveModel
	err := r.db.WithContext(ctx).
		Where("trigger_type = ?", string(domain.TriggerReferral)).
		Where("trigger_data ->> 'referrer_ip' = ? AND trigger_data ->> 'referred_ip' = ?", referrerIP, referredIP).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomainIncentive(model)
}

func (r *incentiveRepository) CountToday(ctx context.Context, ip string, now time.Time) (int, error) {
	dayStart := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)
	var count int64
	err := r.db.WithContext(ctx).Model(&incentiveModel{}).
		Where("recipient_ip = ? AND created_at >= ?", ip, dayStart).
		Count(&count).Error
	return int(count), err
}

func (r *incentiveRepository) DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", olderThan).
		Where("status IN ?", []string{string(domain.StatusPendingValidation), string(domain.StatusApproved)}).
		Delete(&incentiveModel{})
	return result.RowsAffected, result.Error
}

func toDomainIncentives(models []incentiveModel) ([]*domain.Incentive, error) {
	incentives := make([]*domain.Incentive, 0, len(models))
	for _, model := range models {
		incentive, err := toDomainIncentive(model)
		if err != nil {
			return nil, fmt.Errorf("restore incentive %s: %w", model.IncentiveID, err)
		}
		incentives = append(incentives, incentive)
	}
	return incentives, nil
}

func applyTimeRange(query *gorm.DB, within *ports.TimeRange) *gorm.DB {
	if within == nil {
		return query
	}
	if !within.From.IsZero() {
		query = query.Where("created_at >= ?", within.From)
	}
	if !within.To.IsZero() {
		query = query.Where("created_at <= ?", within.To)
	}
	return query
}

type auditLogRepository struct {
	db *gorm.DB
}

func (r *auditLogRepository) Append(ctx context.Context, record ports.AuditRecord) error {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("encode audit metadata: %w", err)
	}
	model := auditLogModel{
		LogID:       record.LogID,
		IncentiveID: record.IncentiveID,
		RecipientIP: record.RecipientIP,
		Action:      record.Action,
		Amount:      record.Amount,
		Metadata:    string(metadata),
		CreatedAt:   record.CreatedAt.UTC(),
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

type idempotencyRepository struct {
	db *gorm.DB
}

func (r *idempotencyRepository) Get(ctx context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	var model idempotencyModel
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if now.After(model.ExpiresAt) || model.ResponseBody == nil {
		return nil, nil
	}
	record := ports.IdempotencyRecord{
		Key:          model.IdempotencyKey,
		RequestHash:  model.RequestHash,
		ResponseBody: model.ResponseBody,
		ExpiresAt:    model.ExpiresAt,
	}
	if model.ResponseCode != nil {
		record.ResponseCode = *model.ResponseCode
	}
	return &record, nil
}

func (r *idempotencyRepository) Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error {
	var existing idempotencyModel
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&existing).Error
	if err == nil {
		if existing.RequestHash != requestHash {
			return domain.ErrConflict
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	model := idempotencyModel{IdempotencyKey: key, RequestHash: requestHash, ExpiresAt: expiresAt.UTC()}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *idempotencyRepository) Complete(ctx context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	return r.db.WithContext(ctx).Model(&idempotencyModel{}).
		Where("idempotency_key = ?", key).
		Updates(map[string]any{
			"response_code": responseCode,
			"response_body": responseBody,
		}).Error
}

type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, record ports.OutboxRecord) error {
	envelope, err := json.Marshal(record.Envelope)
	if err != nil {
		return fmt.Errorf("encode outbox envelope: %w", err)
	}
	model := outboxModel{
		RecordID:  record.RecordID,
		Envelope:  string(envelope),
		CreatedAt: record.CreatedAt.UTC(),
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *outboxRepository) ListPending(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	query := r.db.WithContext(ctx).Where("sent_at IS NULL").Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []outboxModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	records := make([]ports.OutboxRecord, 0, len(models))
	for _, model := range models {
		var envelope contracts.EventEnvelope
		if err := json.Unmarshal([]byte(model.Envelope), &envelope); err != nil {
			return nil, fmt.Errorf("decode outbox envelope %s: %w", model.RecordID, err)
		}
		records = append(records, ports.OutboxRecord{
			RecordID:  model.RecordID,
			Envelope:  envelope,
			CreatedAt: model.CreatedAt,
			SentAt:    model.SentAt,
		})
	}
	return records, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, recordID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("record_id = ?", recordID).
		Update("sent_at", at.UTC()).Error
}
