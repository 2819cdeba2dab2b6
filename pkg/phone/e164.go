// Package phone normalizes phone numbers to E.164 international format.
package phone

import (
	"errors"
	"strings"
)

// ErrInvalidNumber is returned when a number cannot be normalized.
var ErrInvalidNumber = errors.New("invalid phone number")

// Normalize converts a raw phone number into E.164 form. Separators and
// parentheses are stripped. Numbers without an international prefix are
// assumed to be domestic and get defaultCallingCode (e.g. "+82") attached,
// dropping a single leading trunk zero.
func Normalize(raw, defaultCallingCode string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if cleaned == "" {
		return "", ErrInvalidNumber
	}

	switch {
	case strings.HasPrefix(cleaned, "+"):
		// Already international.
	case strings.HasPrefix(cleaned, "00"):
		cleaned = "+" + cleaned[2:]
	case strings.HasPrefix(cleaned, "0"):
		cleaned = defaultCallingCode + cleaned[1:]
	default:
		cleaned = defaultCallingCode + cleaned
	}

	digits := strings.TrimPrefix(cleaned, "+")
	if len(digits) < 8 || len(digits) > 15 {
		return "", ErrInvalidNumber
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", ErrInvalidNumber
		}
	}
	return cleaned, nil
}

// IsDomestic reports whether an E.164 number belongs to the default
// calling code's region.
func IsDomestic(e164, defaultCallingCode string) bool {
	return strings.HasPrefix(e164, defaultCallingCode)
}
