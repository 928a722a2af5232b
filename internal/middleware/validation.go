package middleware

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

var referencePattern = regexp.MustCompile(`^(GRV|SUG|VOL|SUB)[0-9]{5}$`)

// ValidateReferenceCode validates a submission reference code.
func ValidateReferenceCode(ref string) error {
	if !referencePattern.MatchString(strings.ToUpper(strings.TrimSpace(ref))) {
		return errors.New("invalid reference code format")
	}
	return nil
}

// ValidatePhoneNumber validates a phone number after normalization.
func ValidatePhoneNumber(phone string) error {
	digits := digitsOnly(phone)
	if len(digits) < 10 || len(digits) > 15 {
		return errors.New("invalid phone number")
	}
	return nil
}

// NormalizePhone strips non-digits and prefixes the default country code for
// bare 10-digit numbers.
func NormalizePhone(phone string) string {
	digits := digitsOnly(phone)
	if len(digits) == 10 {
		return "91" + digits
	}
	return digits
}

// ValidateNotifyMessage validates an admin notification body.
func ValidateNotifyMessage(message string) error {
	if len(message) == 0 {
		return errors.New("message cannot be empty")
	}
	if !utf8.ValidString(message) {
		return errors.New("message must be valid UTF-8")
	}
	if utf8.RuneCountInString(message) > 4096 {
		return errors.New("message exceeds maximum length")
	}
	return nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
