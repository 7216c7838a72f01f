// Package id mints the public identifiers for loans and notifications.
package id

import (
	"crypto/rand"
	"encoding/hex"
)

// Len is the length of every public id.
const Len = 32

// NewID32 returns 16 random bytes as 32 lowercase hex characters.
func NewID32() string {
	b := make([]byte, Len/2)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Valid reports whether s has the shape NewID32 produces.
func Valid(s string) bool {
	if len(s) != Len {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return false
		}
	}
	return true
}
