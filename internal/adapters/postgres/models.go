package postgres

import "time"

type incentiveModel struct {
	IncentiveID        string     `gorm:"column:incentive_id;primaryKey"`
	RecipientIP        string     `gorm:"column:recipient_ip"`
	ContactInfo        string     `gorm:"column:contact_info"`
	VerificationStatus string     `gorm:"column:verification_status"`
	RewardAmount       float64    `gorm:"column:reward_amount"`
	RewardCurrency     string     `gorm:"column:reward_currency"`
	RewardType         string     `gorm:"column:reward_type"`
	CalculationMethod  string     `gorm:"column:calculation_method"`
	TriggerType        string     `gorm:"column:trigger_type"`
	TriggerData        string     `gorm:"column:trigger_data"`
	QualifiedAt        time.Time  `gorm:"column:qualified_at"`
	Status             string     `gorm:"column:status"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	ProcessedAt        *time.Time `gorm:"column:processed_at"`
	PaidAt             *time.Time `gorm:"column:paid_at"`
}

func (incentiveModel) TableName() string { return "incentives" }

type auditLogModel struct {
	LogID       string    `gorm:"column:log_id;primaryKey"`
	IncentiveID string    `gorm:"column:incentive_id"`
	RecipientIP string    `gorm:"column:recipient_ip"`
	Action      string    `gorm:"column:action"`
	Amount      float64   `gorm:"column:amount"`
	Metadata    string    `gorm:"column:metadata"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (auditLogModel) TableName() string { return "incentive_audit_log" }

type outboxModel struct {
	RecordID  string     `gorm:"column:record_id;primaryKey"`
	Envelope  string     `gorm:"column:envelope"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	SentAt    *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string { return "incentive_outbox" }

type idempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	ResponseCode   *int      `gorm:"column:response_code"`
	ResponseBody   []byte    `gorm:"column:response_body"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string { return "incentive_idempotency" }
