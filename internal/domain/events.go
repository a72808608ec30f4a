package domain

import "time"

const (
	EventIncentiveCreated   = "incentive.created"
	EventIncentiveApproved  = "incentive.approved"
	EventIncentiveRejected  = "incentive.rejected"
	EventIncentivePaid      = "incentive.paid"
	EventPaymentFailed      = "incentive.payment_failed"
	EventIncentiveValidated = "incentive.validated"
	EventValidationFailed   = "incentive.validation_failed"
)

// Event is a domain fact emitted by an aggregate command. Commands return
// their events to the caller; the application layer owns the
// persist-then-publish sequencing through the outbox.
type Event struct {
	Name        string
	OccurredAt  time.Time
	IncentiveID string
	RecipientIP string
	Fields      map[string]any
}
