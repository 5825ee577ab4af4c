// Package validation holds input validation helpers shared by handlers and
// services.  Order numbers arrive from bulk uploads and registration forms
// and must be normalized to a strict charset before touching the database.
package validation

import (
	"errors"
	"strings"
)

// MaxOrderNumberLen bounds sanitized order numbers.  The orders table
// stores the number as a VARCHAR(50) primary key.
const MaxOrderNumberLen = 50

// ErrInvalidOrderNumber is returned for empty, zero, oversized or
// ill-charactered order numbers.
var ErrInvalidOrderNumber = errors.New("invalid order number")

// SanitizeOrderNumber trims surrounding whitespace and validates the
// result: only ASCII letters, digits, hyphen, underscore and period are
// allowed, at most MaxOrderNumberLen characters, and the literal "0" is
// rejected.  The sanitized number is returned unchanged otherwise.
func SanitizeOrderNumber(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "0" {
		return "", ErrInvalidOrderNumber
	}
	if len(s) > MaxOrderNumberLen {
		return "", ErrInvalidOrderNumber
	}
	for i := 0; i < len(s); i++ {
		if !orderNumberChar(s[i]) {
			return "", ErrInvalidOrderNumber
		}
	}
	return s, nil
}

func orderNumberChar(ch byte) bool {
	switch {
	case ch >= 'a' && ch <= 'z':
		return true
	case ch >= 'A' && ch <= 'Z':
		return true
	case ch >= '0' && ch <= '9':
		return true
	case ch == '-' || ch == '_' || ch == '.':
		return true
	}
	return false
}
