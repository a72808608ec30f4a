package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	cnMobilePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)
)

// ContactInfo holds the payout channels for a recipient. At least one channel
// must be present for the contact to be valid, and every present channel must
// match its own format.
type ContactInfo struct {
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	WeChat string `json:"wechat,omitempty"`
	Alipay string `json:"alipay,omitempty"`
}

func (c ContactInfo) IsEmpty() bool {
	return strings.TrimSpace(c.Email) == "" &&
		strings.TrimSpace(c.Phone) == "" &&
		strings.TrimSpace(c.WeChat) == "" &&
		strings.TrimSpace(c.Alipay) == ""
}

// Validate returns the list of format violations. An empty list means the
// contact info is usable for payment.
func (c ContactInfo) Validate() []string {
	var violations []string
	if c.IsEmpty() {
		return []string{"at least one contact channel is required"}
	}
	if email := strings.TrimSpace(c.Email); email != "" && !emailPattern.MatchString(email) {
		violations = append(violations, "invalid email format")
	}
	if phone := strings.TrimSpace(c.Phone); phone != "" && !cnMobilePattern.MatchString(phone) {
		violations = append(violations, "invalid phone format")
	}
	if wechat := strings.TrimSpace(c.WeChat); wechat != "" {
		if length := utf8.RuneCountInString(wechat); length < 6 || length > 20 {
			violations = append(violations, "wechat id must be 6-20 characters")
		}
	}
	return violations
}

func (c ContactInfo) IsValid() bool { return len(c.Validate()) == 0 }
