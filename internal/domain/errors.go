package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("conflict")
	ErrStateConflict       = errors.New("illegal status transition")
	ErrIdempotencyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict = errors.New("idempotency key reused with different payload")
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
	ErrInternal            = errors.New("internal error")
)

// RuleViolationError carries the full list of rule-engine violations for one
// request. It wraps ErrInvalidInput so adapters can map it without knowing the
// concrete type.
type RuleViolationError struct {
	Violations []string
}

func (e *RuleViolationError) Error() string {
	return "rule violations: " + strings.Join(e.Violations, "; ")
}

func (e *RuleViolationError) Unwrap() error { return ErrInvalidInput }

func NewRuleViolationError(violations ...string) *RuleViolationError {
	return &RuleViolationError{Violations: violations}
}

// StateConflictError reports a transition attempted from a status that does
// not permit it.
type StateConflictError struct {
	Current   Status
	Attempted string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s incentive in status %s", e.Attempted, e.Current)
}

func (e *StateConflictError) Unwrap() error { return ErrStateConflict }
