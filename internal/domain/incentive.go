package domain

import (
	"fmt"
	"math/rand/v2"
	"net"
	"strconv"
	"strings"
	"time"
)

type Status string

const (
	StatusPendingValidation Status = "pending_validation"
	StatusApproved          Status = "approved"
	StatusRejected          Status = "rejected"
	StatusPaid              Status = "paid"
	StatusExpired           Status = "expired"
)

type TriggerType string

const (
	TriggerQuestionnaire TriggerType = "questionnaire_completed"
	TriggerReferral      TriggerType = "referral_signup"
)

type RewardType string

const (
	RewardTypeQuestionnaire RewardType = "questionnaire_reward"
	RewardTypeReferral      RewardType = "referral_reward"
)

type PaymentMethod string

const (
	PaymentMethodWeChatPay    PaymentMethod = "wechat_pay"
	PaymentMethodAlipay       PaymentMethod = "alipay"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodManual       PaymentMethod = "manual"
)

// QuestionnaireTrigger and ReferralTrigger form the tagged trigger union.
// Exactly one of them is set on a Trigger, matching its Type.
type QuestionnaireTrigger struct {
	QuestionnaireID string  `json:"questionnaire_id"`
	QualityScore    float64 `json:"quality_score"`
}

type ReferralTrigger struct {
	ReferrerIP string `json:"referrer_ip"`
	ReferredIP string `json:"referred_ip"`
}

type Trigger struct {
	Type          TriggerType           `json:"type"`
	Questionnaire *QuestionnaireTrigger `json:"questionnaire,omitempty"`
	Referral      *ReferralTrigger      `json:"referral,omitempty"`
	QualifiedAt   time.Time             `json:"qualified_at"`
}

// Validate enforces the tag/payload pairing. It runs once at the persistence
// boundary and inside the factories.
func (t Trigger) Validate() error {
	switch t.Type {
	case TriggerQuestionnaire:
		if t.Questionnaire == nil || t.Referral != nil {
			return fmt.Errorf("%w: questionnaire trigger requires questionnaire payload", ErrInvalidInput)
		}
		if strings.TrimSpace(t.Questionnaire.QuestionnaireID) == "" {
			return fmt.Errorf("%w: missing questionnaire id", ErrInvalidInput)
		}
		if t.Questionnaire.QualityScore < 0 || t.Questionnaire.QualityScore > 100 {
			return fmt.Errorf("%w: quality score out of range", ErrInvalidInput)
		}
	case TriggerReferral:
		if t.Referral == nil || t.Questionnaire != nil {
			return fmt.Errorf("%w: referral trigger requires referral payload", ErrInvalidInput)
		}
		if !ValidIPv4(t.Referral.ReferrerIP) || !ValidIPv4(t.Referral.ReferredIP) {
			return fmt.Errorf("%w: referral trigger requires valid ip pair", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown trigger type %q", ErrInvalidInput, t.Type)
	}
	if t.QualifiedAt.IsZero() {
		return fmt.Errorf("%w: missing qualified_at", ErrInvalidInput)
	}
	return nil
}

type Reward struct {
	Amount            float64    `json:"amount"`
	Currency          string     `json:"currency"`
	Type              RewardType `json:"type"`
	CalculationMethod string     `json:"calculation_method"`
}

func (r Reward) Validate() error {
	if r.Amount < 0 || r.Amount > 100 {
		return fmt.Errorf("%w: reward amount must be within [0, 100]", ErrInvalidInput)
	}
	if strings.TrimSpace(r.Currency) == "" {
		return fmt.Errorf("%w: missing reward currency", ErrInvalidInput)
	}
	return nil
}

type Recipient struct {
	IP                 string      `json:"ip"`
	Contact            ContactInfo `json:"contact"`
	VerificationStatus string      `json:"verification_status"`
}

// Incentive is the aggregate root for one reward owed to an IP-identified
// recipient. Fields are exported for persistence mapping; status only moves
// through the transition commands below, never by direct assignment.
type Incentive struct {
	ID          string     `json:"incentive_id"`
	Recipient   Recipient  `json:"recipient"`
	Reward      Reward     `json:"reward"`
	Trigger     Trigger    `json:"trigger"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

const DefaultCurrency = "CNY"

func ValidIPv4(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	return parsed != nil && parsed.To4() != nil
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewIncentiveID yields an opaque id of the form incentive_<ts36>_<rand9>.
func NewIncentiveID(now time.Time) string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return "incentive_" + strconv.FormatInt(now.UnixMilli(), 36) + "_" + string(suffix)
}

// NewQuestionnaireIncentive builds an incentive for a completed questionnaire.
// Reward follows the quality tiering; submissions at or above the standard
// tier are approved immediately on creation (fast-path kept from the original
// workflow, questionnaire trigger only).
func NewQuestionnaireIncentive(policy Policy, ip, questionnaireID string, qualityScore float64, contact ContactInfo, now time.Time) (*Incentive, []Event, error) {
	if !ValidIPv4(ip) {
		return nil, nil, fmt.Errorf("%w: invalid recipient ip", ErrInvalidInput)
	}
	trigger := Trigger{
		Type:          TriggerQuestionnaire,
		Questionnaire: &QuestionnaireTrigger{QuestionnaireID: questionnaireID, QualityScore: qualityScore},
		QualifiedAt:   now,
	}
	if err := trigger.Validate(); err != nil {
		return nil, nil, err
	}
	amount, method := policy.QuestionnaireReward(qualityScore)
	incentive := &Incentive{
		ID:        NewIncentiveID(now),
		Recipient: Recipient{IP: ip, Contact: contact, VerificationStatus: "unverified"},
		Reward: Reward{
			Amount:            amount,
			Currency:          DefaultCurrency,
			Type:              RewardTypeQuestionnaire,
			CalculationMethod: method,
		},
		Trigger:   trigger,
		Status:    StatusPendingValidation,
		CreatedAt: now,
	}
	events := []Event{incentive.createdEvent(now)}
	if qualityScore >= policy.StandardQualityScore {
		approved, err := incentive.Approve("quality score meets standard tier", now)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, approved)
	}
	return incentive, events, nil
}

// NewReferralIncentive builds a fixed-amount incentive for a successful
// referral.
func NewReferralIncentive(policy Policy, referrerIP, referredIP string, contact ContactInfo, now time.Time) (*Incentive, []Event, error) {
	trigger := Trigger{
		Type:        TriggerReferral,
		Referral:    &ReferralTrigger{ReferrerIP: referrerIP, ReferredIP: referredIP},
		QualifiedAt: now,
	}
	if err := trigger.Validate(); err != nil {
		return nil, nil, err
	}
	if referrerIP == referredIP {
		return nil, nil, fmt.Errorf("%w: cannot refer yourself", ErrInvalidInput)
	}
	incentive := &Incentive{
		ID:        NewIncentiveID(now),
		Recipient: Recipient{IP: referrerIP, Contact: contact, VerificationStatus: "unverified"},
		Reward: Reward{
			Amount:            policy.ReferralReward,
			Currency:          DefaultCurrency,
			Type:              RewardTypeReferral,
			CalculationMethod: "referral bonus",
		},
		Trigger:   trigger,
		Status:    StatusPendingValidation,
		CreatedAt: now,
	}
	return incentive, []Event{incentive.createdEvent(now)}, nil
}

// Restore rebuilds an aggregate from its persisted shape, re-validating the
// trigger union and reward bounds once at the boundary.
func Restore(incentive Incentive) (*Incentive, error) {
	if strings.TrimSpace(incentive.ID) == "" {
		return nil, fmt.Errorf("%w: missing incentive id", ErrInvalidInput)
	}
	if !ValidIPv4(incentive.Recipient.IP) {
		return nil, fmt.Errorf("%w: invalid recipient ip", ErrInvalidInput)
	}
	if err := incentive.Trigger.Validate(); err != nil {
		return nil, err
	}
	if err := incentive.Reward.Validate(); err != nil {
		return nil, err
	}
	switch incentive.Status {
	case StatusPendingValidation, StatusApproved, StatusRejected, StatusPaid, StatusExpired:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, incentive.Status)
	}
	if incentive.Status == StatusPaid && incentive.PaidAt == nil {
		return nil, fmt.Errorf("%w: paid incentive missing paid_at", ErrInvalidInput)
	}
	return &incentive, nil
}

// Approve moves the incentive from pending validation into the payable queue.
func (i *Incentive) Approve(reason string, now time.Time) (Event, error) {
	if i.Status != StatusPendingValidation {
		return Event{}, &StateConflictError{Current: i.Status, Attempted: "approve"}
	}
	i.Status = StatusApproved
	processedAt := now
	i.ProcessedAt = &processedAt
	return i.event(EventIncentiveApproved, now, map[string]any{"reason": reason}), nil
}

// Reject is allowed from any non-terminal payment state; a paid incentive can
// no longer be rejected.
func (i *Incentive) Reject(reason string, now time.Time) (Event, error) {
	if i.Status == StatusPaid {
		return Event{}, &StateConflictError{Current: i.Status, Attempted: "reject"}
	}
	i.Status = StatusRejected
	processedAt := now
	i.ProcessedAt = &processedAt
	return i.event(EventIncentiveRejected, now, map[string]any{"reason": reason}), nil
}

// PaymentResult is the outcome of ExecutePayment. Precondition failures are
// reported here rather than as an error so the caller can react without a
// half-mutated aggregate.
type PaymentResult struct {
	Succeeded     bool
	TransactionID string
	FailureReason string
}

// ExecutePayment transitions approved -> paid. All preconditions are checked
// before any mutation; on failure the status is untouched and a payment-failed
// event is emitted.
func (i *Incentive) ExecutePayment(policy Policy, method PaymentMethod, transactionID string, now time.Time) (PaymentResult, Event) {
	failureReason := ""
	switch {
	case i.Status != StatusApproved:
		failureReason = fmt.Sprintf("cannot pay incentive in status %s", i.Status)
	case i.Reward.Amount <= 0:
		failureReason = "reward amount must be positive"
	case !i.Recipient.Contact.IsValid():
		failureReason = "recipient contact info is invalid"
	case now.Sub(i.CreatedAt) > policy.PaymentWindow:
		failureReason = "incentive exceeded the payment window"
	}
	if failureReason != "" {
		return PaymentResult{FailureReason: failureReason}, i.event(EventPaymentFailed, now, map[string]any{
			"payment_method": string(method),
			"reason":         failureReason,
		})
	}
	i.Status = StatusPaid
	paidAt := now
	i.PaidAt = &paidAt
	return PaymentResult{Succeeded: true, TransactionID: transactionID}, i.event(EventIncentivePaid, now, map[string]any{
		"payment_method": string(method),
		"transaction_id": transactionID,
		"amount":         i.Reward.Amount,
		"currency":       i.Reward.Currency,
	})
}

type ValidationResult struct {
	Valid  bool
	Errors []string
}

// ValidateEligibility re-checks aggregate consistency without mutating status.
// It reports errors and emits an informational event either way.
func (i *Incentive) ValidateEligibility(now time.Time) (ValidationResult, Event) {
	var errs []string
	if err := i.Trigger.Validate(); err != nil {
		errs = append(errs, "invalid trigger: "+err.Error())
	}
	if !ValidIPv4(i.Recipient.IP) {
		errs = append(errs, "invalid recipient ip")
	}
	errs = append(errs, i.Recipient.Contact.Validate()...)
	if err := i.Reward.Validate(); err != nil {
		errs = append(errs, "invalid reward: "+err.Error())
	}
	if i.Status == StatusPaid && i.PaidAt == nil {
		errs = append(errs, "paid incentive missing paid timestamp")
	}
	result := ValidationResult{Valid: len(errs) == 0, Errors: errs}
	name := EventIncentiveValidated
	fields := map[string]any{}
	if !result.Valid {
		name = EventValidationFailed
		fields["errors"] = errs
	}
	return result, i.event(name, now, fields)
}

// Summary is a pure read-model projection of the aggregate.
type Summary struct {
	ID                string      `json:"incentive_id"`
	RecipientIP       string      `json:"recipient_ip"`
	Reward            Reward      `json:"reward"`
	TriggerType       TriggerType `json:"trigger_type"`
	Status            Status      `json:"status"`
	CreatedAt         time.Time   `json:"created_at"`
	ProcessedAt       *time.Time  `json:"processed_at,omitempty"`
	PaidAt            *time.Time  `json:"paid_at,omitempty"`
	CanBePaid         bool        `json:"can_be_paid"`
	DaysSinceCreation int         `json:"days_since_creation"`
}

func (i *Incentive) Summarize(now time.Time) Summary {
	return Summary{
		ID:                i.ID,
		RecipientIP:       i.Recipient.IP,
		Reward:            i.Reward,
		TriggerType:       i.Trigger.Type,
		Status:            i.Status,
		CreatedAt:         i.CreatedAt,
		ProcessedAt:       i.ProcessedAt,
		PaidAt:            i.PaidAt,
		CanBePaid:         i.Status == StatusApproved && i.Recipient.Contact.IsValid() && i.Reward.Amount > 0,
		DaysSinceCreation: int(now.Sub(i.CreatedAt).Hours() / 24),
	}
}

func (i *Incentive) createdEvent(now time.Time) Event {
	return i.event(EventIncentiveCreated, now, map[string]any{
		"trigger_type":  string(i.Trigger.Type),
		"reward_amount": i.Reward.Amount,
		"currency":      i.Reward.Currency,
	})
}

func (i *Incentive) event(name string, now time.Time, fields map[string]any) Event {
	return Event{
		Name:        name,
		OccurredAt:  now,
		IncentiveID: i.ID,
		RecipientIP: i.Recipient.IP,
		Fields:      fields,
	}
}
