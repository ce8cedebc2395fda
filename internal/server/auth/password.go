// Package auth implements the cryptographic core of authgate: password
// hashing/verification and signed-token issuance and verification.
package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// DummyPasswordHash is compared against when a login hits an unknown email,
// so that the unknown-email and wrong-password paths both cost one bcrypt
// verification. The digest part is fabricated, not derived from any
// password, so no input can ever match it.
const DummyPasswordHash = "$2a$10$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// HashPassword hashes a plaintext password using bcrypt with a per-call salt.
// The cost factor bounds worst-case latency while staying expensive enough to
// resist offline brute force. It fails only on catastrophic conditions such
// as entropy exhaustion.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
// Any mismatch, malformed hash, or corrupted input yields false; it never
// returns an error for a simple mismatch.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
