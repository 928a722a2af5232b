package middleware_test

import (
	"strings"
	"testing"

	"github.com/civicpulse/engagement-platform/internal/middleware"
)

func TestValidateReferenceCode(t *testing.T) {
	for _, ref := range []string{"GRV12345", "SUG99999", "VOL10000", "SUB54321", " grv12345 "} {
		if err := middleware.ValidateReferenceCode(ref); err != nil {
			t.Errorf("%q should be valid: %v", ref, err)
		}
	}
	for _, ref := range []string{"", "GRV1234", "GRV123456", "XXX12345", "GRVABCDE", "12345GRV"} {
		if err := middleware.ValidateReferenceCode(ref); err == nil {
			t.Errorf("%q should be rejected", ref)
		}
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	for _, phone := range []string{"9876543210", "919876543210", "+91 98765 43210"} {
		if err := middleware.ValidatePhoneNumber(phone); err != nil {
			t.Errorf("%q should be valid: %v", phone, err)
		}
	}
	for _, phone := range []string{"", "12345", "1234567890123456", "abcdefghij"} {
		if err := middleware.ValidatePhoneNumber(phone); err == nil {
			t.Errorf("%q should be rejected", phone)
		}
	}
}

func TestValidateNotifyMessageCountsCharacters(t *testing.T) {
	// 3000 Tamil characters are 9000 bytes; the 4096 bound is in characters.
	if err := middleware.ValidateNotifyMessage(strings.Repeat("த", 3000)); err != nil {
		t.Errorf("3000-character message should be valid: %v", err)
	}
	if err := middleware.ValidateNotifyMessage(strings.Repeat("த", 4097)); err == nil {
		t.Error("4097-character message should be rejected")
	}
	if err := middleware.ValidateNotifyMessage(""); err == nil {
		t.Error("empty message should be rejected")
	}
	if err := middleware.ValidateNotifyMessage("\xff\xfe"); err == nil {
		t.Error("invalid UTF-8 should be rejected")
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"9876543210":      "919876543210",
		"919876543210":    "919876543210",
		"+91 98765 43210": "919876543210",
	}
	for in, want := range cases {
		if got := middleware.NormalizePhone(in); got != want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}
