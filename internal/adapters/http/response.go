package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/domain"
)

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(contracts.SuccessResponse{Status: "ok", Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapDomainError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(contracts.ErrorResponse{
		Status:    "error",
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: requestIDFrom(r.Context()),
	})
}

func mapDomainError(err error) (status int, code, message string, details []string) {
	var ruleErr *domain.RuleViolationError
	if errors.As(err, &ruleErr) {
		return http.StatusUnprocessableEntity, "rule_violation", "business rules rejected the request", ruleErr.Violations
	}
	var stateErr *domain.StateConflictError
	if errors.As(err, &stateErr) {
		return http.StatusConflict, "state_conflict", stateErr.Error(), nil
	}
	switch {
	case errors.Is(err, domain.ErrIdempotencyRequired):
		return http.StatusBadRequest, "idempotency_key_required", err.Error(), nil
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input", err.Error(), nil
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", "authentication required", nil
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden", "operation not permitted for this role", nil
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found", "incentive not found", nil
	case errors.Is(err, domain.ErrIdempotencyConflict), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict", err.Error(), nil
	case errors.Is(err, domain.ErrStateConflict):
		return http.StatusConflict, "state_conflict", err.Error(), nil
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusBadGateway, "gateway_unavailable", "payment gateway unavailable", nil
	default:
		return http.StatusInternalServerError, "internal_error", "internal error", nil
	}
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}
