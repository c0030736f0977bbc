// Package roomcode generates and normalizes the short codes rooms are
// addressed by.
package roomcode

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	// Alphabet excludes the visually ambiguous symbols 0, 1, I and O.
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// Length is the fixed code length.
	Length = 6
)

// Generate returns a random room code. Uniqueness against live rooms is the
// registry's concern, not this package's.
func Generate() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	// len(Alphabet) is 32, which divides 256 evenly, so the modulo keeps the
	// symbol distribution uniform.
	for i, b := range buf {
		buf[i] = Alphabet[int(b)%len(Alphabet)]
	}

	return string(buf), nil
}

// Normalize maps user input to canonical form: trimmed, uppercase.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValid reports whether a normalized code has the right length and only
// uses alphabet symbols.
func IsValid(code string) bool {
	if len(code) != Length {
		return false
	}

	for _, r := range code {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}

	return true
}
