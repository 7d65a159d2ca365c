package util

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idLength   = 16
)

// NewID returns a random lowercase alphanumeric identifier used for import
// jobs and AI call sessions.
func NewID() string {
	return gonanoid.MustGenerate(idAlphabet, idLength)
}

// IsID reports whether s has the shape of an identifier produced by NewID.
func IsID(s string) bool {
	if len(s) != idLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}
