// Package intake implements the appointment intake conversation: the session
// model, the step state machine and the HTTP surface that drives it.
package intake

import (
	"regexp"
	"strings"
)

var (
	// Digits, spaces, '+' and '-' only, 7-15 characters after trimming.
	phonePattern = regexp.MustCompile(`^[+\d\s\-]{7,15}$`)

	// Deliberately permissive: something@something.something. Full RFC 5322
	// enforcement buys nothing at intake time.
	emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)
)

// IsValidPhone reports whether s looks like a usable phone number.
func IsValidPhone(s string) bool {
	return phonePattern.MatchString(strings.TrimSpace(s))
}

// IsValidEmail reports whether s looks like an email address.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}
