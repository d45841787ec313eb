// Package crypto wraps the symmetric primitives used for client-side
// secure storage: AES-256-GCM over JSON-serialized values, and
// PBKDF2-HMAC-SHA-256 password-based key derivation.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cofferlabs/coffer/internal/util"
)

const (
	// DefaultIterations is the PBKDF2 iteration count used when the caller
	// does not override it.
	DefaultIterations = util.DefaultPBKDF2Iterations
	// DefaultSaltLength is the length in bytes of generated salts.
	DefaultSaltLength = util.DefaultSaltSize
)

var available = sync.OnceValue(func() bool {
	block, err := aes.NewCipher(make([]byte, util.AESKeySize))
	if err != nil {
		return false
	}
	_, err = cipher.NewGCM(block)
	return err == nil
})

// Available reports whether authenticated encryption is usable in this
// process. The result of the underlying self-test is cached.
func Available() bool {
	return available()
}

// DeriveOption customizes DeriveKey.
type DeriveOption func(*deriveOptions)

type deriveOptions struct {
	salt       []byte
	iterations int
}

// WithSalt sets the salt to derive with. Without it, DeriveKey generates a
// fresh random salt of DefaultSaltLength bytes.
func WithSalt(salt []byte) DeriveOption {
	return func(o *deriveOptions) {
		o.salt = salt
	}
}

// WithIterations overrides the PBKDF2 iteration count. Non-positive values
// fall back to DefaultIterations.
func WithIterations(n int) DeriveOption {
	return func(o *deriveOptions) {
		o.iterations = n
	}
}

// DeriveKey derives an AES-256 key from a password with
// PBKDF2-HMAC-SHA-256, NFKD-normalizing the password first. It returns the
// key together with the salt that was used, so callers persisting the salt
// can reproduce the key later: the same password, salt, and iteration
// count always derive the same key. The caller's salt slice is never
// mutated.
func DeriveKey(password string, opts ...DeriveOption) (*Key, []byte, error) {
	if !Available() {
		return nil, nil, ErrUnavailable
	}
	if password == "" {
		return nil, nil, fmt.Errorf("password must not be empty")
	}

	o := deriveOptions{iterations: DefaultIterations}
	for _, opt := range opts {
		opt(&o)
	}
	if o.iterations <= 0 {
		o.iterations = DefaultIterations
	}

	salt := util.CopyBytes(o.salt)
	if len(salt) == 0 {
		var err error
		salt, err = util.RandomBytes(DefaultSaltLength)
		if err != nil {
			return nil, nil, fmt.Errorf("generating salt: %w", err)
		}
	}

	raw, err := util.DerivePBKDF2Key(util.Normalize(password), salt, o.iterations)
	if err != nil {
		return nil, nil, fmt.Errorf("deriving key: %w", err)
	}
	return newKey(raw), salt, nil
}

// EncryptOption customizes Encrypt.
type EncryptOption func(*encryptOptions)

type encryptOptions struct {
	salt []byte
}

// WithEmbeddedSalt records the given salt in the resulting payload, so a
// password-derived key can be reconstructed from the payload alone.
func WithEmbeddedSalt(salt []byte) EncryptOption {
	return func(o *encryptOptions) {
		o.salt = salt
	}
}

// Encrypt JSON-serializes value and seals it with AES-256-GCM under a
// fresh random 96-bit IV.
func Encrypt(value any, key *Key, opts ...EncryptOption) (*EncryptedPayload, error) {
	if !Available() {
		return nil, ErrUnavailable
	}
	if key == nil {
		return nil, fmt.Errorf("key must not be nil")
	}

	o := encryptOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	plainText, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	defer util.WipeBytes(plainText)

	nonce, cipherText, err := util.EncryptAESGCM(plainText, key.raw)
	if err != nil {
		return nil, fmt.Errorf("encrypting value: %w", err)
	}

	payload := &EncryptedPayload{
		Ciphertext: util.Base64Encode(cipherText),
		IV:         util.Base64Encode(nonce),
		Algorithm:  AlgorithmAESGCM,
	}
	if len(o.salt) > 0 {
		payload.Salt = util.Base64Encode(o.salt)
	}
	return payload, nil
}

// Decrypt authenticates and decrypts a payload produced by Encrypt,
// JSON-decoding the plaintext into dest. Tampered ciphertext or IV, or a
// wrong key, yields an error wrapping ErrAuthentication.
func Decrypt(payload *EncryptedPayload, key *Key, dest any) error {
	if !Available() {
		return ErrUnavailable
	}
	if payload == nil {
		return fmt.Errorf("payload must not be nil")
	}
	if key == nil {
		return fmt.Errorf("key must not be nil")
	}
	if payload.Algorithm != AlgorithmAESGCM {
		return fmt.Errorf("unsupported algorithm %q", payload.Algorithm)
	}

	cipherText, err := util.Base64Decode(payload.Ciphertext)
	if err != nil {
		return fmt.Errorf("decoding ciphertext: %w", err)
	}
	nonce, err := util.Base64Decode(payload.IV)
	if err != nil {
		return fmt.Errorf("decoding iv: %w", err)
	}
	if len(nonce) != util.NonceSize {
		return fmt.Errorf("invalid iv length: got %d, want %d", len(nonce), util.NonceSize)
	}

	plainText, err := util.DecryptAESGCM(nonce, cipherText, key.raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	defer util.WipeBytes(plainText)

	if err := json.Unmarshal(plainText, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return nil
}

// GenerateSalt returns cryptographically random salt bytes. Non-positive
// lengths use DefaultSaltLength.
func GenerateSalt(length int) ([]byte, error) {
	if length <= 0 {
		length = DefaultSaltLength
	}
	return util.RandomBytes(length)
}
