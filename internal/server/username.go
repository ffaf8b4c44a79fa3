// Package server validates and sanitizes usernames supplied during the
// connection handshake.
package server

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minUsernameLen = 2
	maxUsernameLen = 20
)

// SanitizeUsername strips everything but letters, digits, underscore and
// hyphen, and truncates the result to the maximum allowed length.
func SanitizeUsername(raw string) string {
	var b strings.Builder
	count := 0
	for _, r := range strings.TrimSpace(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			b.WriteRune(r)
			count++
		}
		if count >= maxUsernameLen {
			break
		}
	}
	return b.String()
}

// ValidateUsername reports whether a sanitized username is acceptable:
// within length bounds and starting with a letter.
func ValidateUsername(username string) bool {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen || n > maxUsernameLen {
		return false
	}
	first, _ := utf8.DecodeRuneInString(username)
	return unicode.IsLetter(first)
}
