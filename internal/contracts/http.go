package contracts

type SuccessResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

type ErrorResponse struct {
	Status    string   `json:"status"`
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Details   []string `json:"details,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

type ContactInfoPayload struct {
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	WeChat string `json:"wechat,omitempty"`
	Alipay string `json:"alipay,omitempty"`
}

type CreateQuestionnaireIncentiveRequest struct {
	IP              string             `json:"ip"`
	QuestionnaireID string             `json:"questionnaire_id"`
	QualityScore    float64            `json:"quality_score"`
	Contact         ContactInfoPayload `json:"contact"`
}

type CreateReferralIncentiveRequest struct {
	ReferrerIP string             `json:"referrer_ip"`
	ReferredIP string             `json:"referred_ip"`
	Contact    ContactInfoPayload `json:"contact"`
}

type DecisionRequest struct {
	Reason string `json:"reason"`
}

type ProcessPaymentRequest struct {
	Method string `json:"method"`
}

type BatchPaymentRequest struct {
	IncentiveIDs []string `json:"incentive_ids"`
	Method       string   `json:"method"`
}
