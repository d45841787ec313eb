package keep

import "github.com/cofferlabs/coffer/crypto"

// Cipher is the cryptographic surface the store depends on. The default
// implementation delegates to the crypto package; tests substitute one to
// force degraded behavior.
type Cipher interface {
	Available() bool
	GenerateKey() (*crypto.Key, error)
	DeriveKey(password string, salt []byte, iterations int) (*crypto.Key, []byte, error)
	Encrypt(value any, key *crypto.Key, salt []byte) (*crypto.EncryptedPayload, error)
	Decrypt(payload *crypto.EncryptedPayload, key *crypto.Key, dest any) error
}

type stdCipher struct{}

var _ Cipher = stdCipher{}

func (stdCipher) Available() bool {
	return crypto.Available()
}

func (stdCipher) GenerateKey() (*crypto.Key, error) {
	return crypto.GenerateKey()
}

func (stdCipher) DeriveKey(password string, salt []byte, iterations int) (*crypto.Key, []byte, error) {
	opts := []crypto.DeriveOption{crypto.WithIterations(iterations)}
	if len(salt) > 0 {
		opts = append(opts, crypto.WithSalt(salt))
	}
	return crypto.DeriveKey(password, opts...)
}

func (stdCipher) Encrypt(value any, key *crypto.Key, salt []byte) (*crypto.EncryptedPayload, error) {
	if len(salt) > 0 {
		return crypto.Encrypt(value, key, crypto.WithEmbeddedSalt(salt))
	}
	return crypto.Encrypt(value, key)
}

func (stdCipher) Decrypt(payload *crypto.EncryptedPayload, key *crypto.Key, dest any) error {
	return crypto.Decrypt(payload, key, dest)
}
