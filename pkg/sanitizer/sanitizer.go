// Package sanitizer normalizes user supplied strings before they are
// validated or stored.
package sanitizer

import (
	"strings"
	"unicode"
)

// NormalizeEmail trims surrounding whitespace and lowercases the address.
// Accounts are keyed by the normalized form, which makes email uniqueness
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TrimString removes surrounding whitespace and control characters.
func TrimString(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
}

// StripControl removes control characters other than tab, newline and carriage return.
func StripControl(s string) string {
	if strings.IndexFunc(s, isStrippable) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if isStrippable(r) {
			return -1
		}
		return r
	}, s)
}

func isStrippable(r rune) bool {
	return unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r'
}
