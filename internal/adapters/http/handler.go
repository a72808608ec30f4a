package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/ports"
)

type Handler struct {
	service *application.Service
}

func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateQuestionnaireIncentive(w http.ResponseWriter, r *http.Request) {
	var request contracts.CreateQuestionnaireIncentiveRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := h.service.CreateQuestionnaireIncentive(r.Context(), actorFrom(r.Context()), application.CreateQuestionnaireIncentiveInput{
		IP:              request.IP,
		QuestionnaireID: request.QuestionnaireID,
		QualityScore:    request.QualityScore,
		Contact:         toContactInfo(request.Contact),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, summary)
}

func (h *Handler) CreateReferralIncentive(w http.ResponseWriter, r *http.Request) {
	var request contracts.CreateReferralIncentiveRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := h.service.CreateReferralIncentive(r.Context(), actorFrom(r.Context()), application.CreateReferralIncentiveInput{
		ReferrerIP: request.ReferrerIP,
		ReferredIP: request.ReferredIP,
		Contact:    toContactInfo(request.Contact),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, summary)
}

func (h *Handler) GetIncentive(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetIncentive(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, summary)
}

func (h *Handler) ValidateIncentive(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ValidateIncentive(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

func (h *Handler) ApproveIncentive(w http.ResponseWriter, r *http.Request) {
	var request contracts.DecisionRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := h.service.ApproveIncentive(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), request.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, summary)
}

func (h *Handler) RejectIncentive(w http.ResponseWriter, r *http.Request) {
	var request contracts.DecisionRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := h.service.RejectIncentive(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), request.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, summary)
}

func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var request contracts.ProcessPaymentRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, err)
		return
	}
	method, err := parsePaymentMethod(request.Method)
	if err != nil {
		writeError(w, r, err)
		return
	}
	output, err := h.service.ProcessPayment(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), method)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, output)
}

func (h *Handler) ProcessBatchPayment(w http.ResponseWriter, r *http.Request) {
	var request contracts.BatchPaymentRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, err)
		return
	}
	method, err := parsePaymentMethod(request.Method)
	if err != nil {
		writeError(w, r, err)
		return
	}
	output, err := h.service.ProcessBatchPayment(r.Context(), actorFrom(r.Context()), request.IncentiveIDs, method)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, output)
}

func (h *Handler) GetPendingIncentives(w http.ResponseWriter, r *http.Request) {
	var status *domain.Status
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		parsed := domain.Status(raw)
		status = &parsed
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, r, domain.ErrInvalidInput)
			return
		}
		limit = parsed
	}
	output, err := h.service.GetPendingIncentives(r.Context(), actorFrom(r.Context()), status, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, output)
}

func (h *Handler) GetIncentiveStatistics(w http.ResponseWriter, r *http.Request) {
	within, err := parseTimeRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	output, err := h.service.GetIncentiveStatistics(r.Context(), actorFrom(r.Context()), r.URL.Query().Get("ip"), within)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, output)
}

// parseTimeRange reads optional RFC 3339 bounds; both absent means no window.
func parseTimeRange(from, to string) (*ports.TimeRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	within := &ports.TimeRange{}
	if from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		within.From = parsed
	}
	if to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		within.To = parsed
	}
	return within, nil
}

func (h *Handler) AssessIncentiveRisk(w http.ResponseWriter, r *http.Request) {
	assessment, err := h.service.AssessIncentiveRisk(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, assessment)
}

func toContactInfo(payload contracts.ContactInfoPayload) domain.ContactInfo {
	return domain.ContactInfo{
		Email:  payload.Email,
		Phone:  payload.Phone,
		WeChat: payload.WeChat,
		Alipay: payload.Alipay,
	}
}

func parsePaymentMethod(raw string) (domain.PaymentMethod, error) {
	switch method := domain.PaymentMethod(raw); method {
	case domain.PaymentMethodWeChatPay, domain.PaymentMethodAlipay, domain.PaymentMethodBankTransfer, domain.PaymentMethodManual:
		return method, nil
	default:
		return "", domain.NewRuleViolationError("unsupported payment method: " + raw)
	}
}
