package util

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultPBKDF2Iterations is the PBKDF2 iteration count used when the
	// caller does not supply one.
	DefaultPBKDF2Iterations = 100000
	// DefaultSaltSize is the salt length in bytes for fresh salts.
	DefaultSaltSize = 16
)

// DerivePBKDF2Key derives a 32-byte key from a password and salt using
// PBKDF2-HMAC-SHA-256. The password must already be normalized; see
// Normalize.
func DerivePBKDF2Key(password string, salt []byte, iterations int) ([]byte, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("password must not be empty")
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("salt must not be empty")
	}
	if iterations <= 0 {
		return nil, fmt.Errorf("iterations must be positive, got %d", iterations)
	}
	return pbkdf2.Key([]byte(password), salt, iterations, AESKeySize, sha256.New), nil
}
