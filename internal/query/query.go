// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query sanitizes and validates free-text health queries before
// they are sent to a provider.
package query

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MinLength and MaxLength bound a sanitized query, in code points.
	MinLength = 2
	MaxLength = 500
)

// Validation failures. Their messages are safe to show to callers.
var (
	ErrMissing      = errors.New("Query is required")
	ErrTooShort     = errors.New("Query is too short. Please provide a more specific health question.")
	ErrTooLong      = fmt.Errorf("Query is too long. Maximum %d characters allowed.", MaxLength)
	ErrInvalidChars = errors.New("Query contains invalid characters. Please use only letters, numbers, and common punctuation.")
)

// Sanitize strips ASCII control characters (0x00-0x1F, 0x7F), collapses
// runs of whitespace to a single space, and trims the result. Control
// characters are removed before whitespace is collapsed, so a tab or
// newline disappears rather than becoming a space.
func Sanitize(input string) string {
	var b strings.Builder
	b.Grow(len(input))

	pendingSpace := false
	for _, r := range input {
		if isControl(r) {
			continue
		}
		if unicode.IsSpace(r) {
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// Validate sanitizes raw and checks length and character class. It returns
// the sanitized query, or one of the Err* values. Length is checked before
// characters, so a query of only control characters is too short.
func Validate(raw string) (string, error) {
	if raw == "" {
		return "", ErrMissing
	}

	q := Sanitize(raw)
	n := utf8.RuneCountInString(q)
	if n < MinLength {
		return "", ErrTooShort
	}
	if n > MaxLength {
		return "", ErrTooLong
	}
	if !hasValidChars(q) {
		return "", ErrInvalidChars
	}
	return q, nil
}

func isControl(r rune) bool {
	return r <= 0x1F || r == 0x7F
}

// hasValidChars reports whether every rune is a letter, number, punctuation
// mark or separator, or printable ASCII. Emoji and other symbols outside
// ASCII are rejected.
func hasValidChars(q string) bool {
	for _, r := range q {
		if r <= unicode.MaxASCII && unicode.IsPrint(r) {
			continue
		}
		if unicode.In(r, unicode.L, unicode.N, unicode.P, unicode.Z) {
			continue
		}
		return false
	}
	return true
}
