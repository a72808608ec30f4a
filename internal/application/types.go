package application

import (
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/ports"
)

type Config struct {
	ServiceName          string
	Policy               domain.Policy
	IdempotencyTTL       time.Duration
	OutboxFlushBatchSize int
	DefaultPendingLimit  int
}

type Actor struct {
	SubjectID      string
	Role           string
	RequestID      string
	IdempotencyKey string
}

func (a Actor) isOperator() bool {
	return a.Role == "admin" || a.Role == "finance"
}

type CreateQuestionnaireIncentiveInput struct {
	IP              string
	QuestionnaireID string
	QualityScore    float64
	Contact         domain.ContactInfo
}

type CreateReferralIncentiveInput struct {
	ReferrerIP string
	ReferredIP string
	Contact    domain.ContactInfo
}

type ValidationOutput struct {
	IncentiveID string   `json:"incentive_id"`
	Valid       bool     `json:"valid"`
	Errors      []string `json:"errors,omitempty"`
}

type PaymentOutput struct {
	IncentiveID   string               `json:"incentive_id"`
	TransactionID string               `json:"transaction_id"`
	Amount        float64              `json:"amount"`
	Currency      string               `json:"currency"`
	Method        domain.PaymentMethod `json:"method"`
	PaidAt        time.Time            `json:"paid_at"`
}

type BatchItemResult struct {
	IncentiveID   string  `json:"incentive_id"`
	Success       bool    `json:"success"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
	Reason        string  `json:"reason,omitempty"`
}

type BatchPaymentOutput struct {
	Results      []BatchItemResult `json:"results"`
	SuccessCount int               `json:"success_count"`
	FailureCount int               `json:"failure_count"`
	TotalPaid    float64           `json:"total_paid"`
	Warnings     []string          `json:"warnings,omitempty"`
}

type IPStatistics struct {
	IP            string                `json:"ip"`
	Total         int                   `json:"total"`
	ByStatus      map[domain.Status]int `json:"by_status"`
	TotalAmount   float64               `json:"total_amount"`
	PaidAmount    float64               `json:"paid_amount"`
	PendingAmount float64               `json:"pending_amount"`
	AverageReward float64               `json:"average_reward"`
	MostRecentAt  *time.Time            `json:"most_recent_at,omitempty"`
}

type SystemStatistics struct {
	Total            int                   `json:"total"`
	UniqueRecipients int                   `json:"unique_recipients"`
	ByStatus         map[domain.Status]int `json:"by_status"`
	TotalAmount      float64               `json:"total_amount"`
	PaidAmount       float64               `json:"paid_amount"`
	ConversionRate   float64               `json:"conversion_rate"`
}

type StatisticsOutput struct {
	IP     *IPStatistics     `json:"ip,omitempty"`
	System *SystemStatistics `json:"system,omitempty"`
}

type PrioritizedIncentive struct {
	Summary  domain.Summary            `json:"summary"`
	Priority domain.PriorityAssessment `json:"priority"`
}

type Service struct {
	cfg         Config
	incentives  ports.IncentiveRepository
	audit       ports.AuditLogRepository
	idempotency ports.IdempotencyRepository
	outbox      ports.OutboxRepository

	usage   ports.UsageTracker
	gateway ports.PaymentGateway

	domainEvents ports.DomainPublisher
	auditLog     ports.AuditLogger
	nowFn        func() time.Time
}

type Dependencies struct {
	Config       Config
	Incentives   ports.IncentiveRepository
	Audit        ports.AuditLogRepository
	Idempotency  ports.IdempotencyRepository
	Outbox       ports.OutboxRepository
	Usage        ports.UsageTracker
	Gateway      ports.PaymentGateway
	DomainEvents ports.DomainPublisher
	AuditLogger  ports.AuditLogger
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "M42-Incentive-Service"
	}
	if cfg.Policy == (domain.Policy{}) {
		cfg.Policy = domain.DefaultPolicy()
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.OutboxFlushBatchSize <= 0 {
		cfg.OutboxFlushBatchSize = 100
	}
	if cfg.DefaultPendingLimit <= 0 {
		cfg.DefaultPendingLimit = 50
	}
	return &Service{
		cfg:          cfg,
		incentives:   deps.Incentives,
		audit:        deps.Audit,
		idempotency:  deps.Idempotency,
		outbox:       deps.Outbox,
		usage:        deps.Usage,
		gateway:      deps.Gateway,
		domainEvents: deps.DomainEvents,
		auditLog:     deps.AuditLogger,
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
}
