package utils

import (
	"fmt"
	"regexp"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateFeeCents validates a fee amount expressed in cents
func ValidateFeeCents(cents int64) error {
	if cents < 0 {
		return fmt.Errorf("fee must not be negative: %d", cents)
	}
	return nil
}

// ValidateBps validates a basis-point rate (0..10000)
func ValidateBps(bps int64) error {
	if bps < 0 || bps > 10000 {
		return fmt.Errorf("basis points out of range: %d", bps)
	}
	return nil
}

// SanitizeString removes control characters
func SanitizeString(s string) string {
	return regexp.MustCompile(`[\x00-\x1f\x7f]`).ReplaceAllString(s, "")
}
