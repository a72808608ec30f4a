package domain

import "testing"

func TestContactInfoValidate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name       string
		contact    ContactInfo
		violations int
	}{
		{"empty", ContactInfo{}, 1},
		{"valid email", ContactInfo{Email: "user@example.com"}, 0},
		{"bad email", ContactInfo{Email: "user@@example"}, 1},
		{"valid cn mobile", ContactInfo{Phone: "13812345678"}, 0},
		{"landline rejected", ContactInfo{Phone: "021-1234567"}, 1},
		{"short mobile", ContactInfo{Phone: "1381234"}, 1},
		{"valid wechat", ContactInfo{WeChat: "user_1"}, 0},
		{"wechat too short", ContactInfo{WeChat: "abc"}, 1},
		{"wechat too long", ContactInfo{WeChat: "abcdefghijklmnopqrstu"}, 1},
		{"wechat multibyte counted in runes", ContactInfo{WeChat: "微信号用户一二"}, 0},
		{"wechat multibyte too short", ContactInfo{WeChat: "微信号"}, 1},
		{"alipay alone suffices", ContactInfo{Alipay: "any-identifier"}, 0},
		{"multiple bad channels", ContactInfo{Email: "nope", Phone: "123"}, 2},
		{"one good one bad", ContactInfo{Email: "user@example.com", Phone: "123"}, 1},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			violations := tc.contact.Validate()
			if len(violations) != tc.violations {
				t.Fatalf("violations = %v, want %d", violations, tc.violations)
			}
			if tc.contact.IsValid() != (tc.violations == 0) {
				t.Fatalf("IsValid inconsistent with Validate for %+v", tc.contact)
			}
		})
	}
}

func TestValidIPv4(t *testing.T) {
	t.Parallel()
	if !ValidIPv4("192.168.1.1") || !ValidIPv4(" 10.0.0.1 ") {
		t.Fatal("valid ipv4 rejected")
	}
	for _, bad := range []string{"", "256.1.1.1", "10.0.0", "::1", "example.com"} {
		if ValidIPv4(bad) {
			t.Fatalf("ValidIPv4(%q) = true", bad)
		}
	}
}
