package crypto

import (
	"crypto/subtle"
	"fmt"

	"github.com/google/uuid"

	"github.com/cofferlabs/coffer/internal/util"
)

// Key is an opaque handle to a 256-bit AES key. Keys come from
// GenerateKey, DeriveKey, NewKeyFromBytes, or ImportKey; the material
// leaves the package only through Bytes and ExportKey.
type Key struct {
	id  string
	raw []byte
}

func newKey(raw []byte) *Key {
	return &Key{id: uuid.NewString(), raw: raw}
}

// NewKeyFromBytes copies raw into a new key handle. raw must be exactly
// 32 bytes; the caller keeps ownership of the input slice.
func NewKeyFromBytes(raw []byte) (*Key, error) {
	if len(raw) != util.AESKeySize {
		return nil, fmt.Errorf("invalid key length: got %d, want %d", len(raw), util.AESKeySize)
	}
	return newKey(util.CopyBytes(raw)), nil
}

// GenerateKey creates a new random AES-256 key.
func GenerateKey() (*Key, error) {
	if !Available() {
		return nil, ErrUnavailable
	}
	raw, err := util.NewAESKey()
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return newKey(raw), nil
}

// ID returns a random identifier assigned at construction, safe for logs.
// It carries no key material.
func (k *Key) ID() string {
	if k == nil {
		return ""
	}
	return k.id
}

// Bytes returns a copy of the raw key material. Callers are responsible
// for wiping the copy when done.
func (k *Key) Bytes() []byte {
	if k == nil {
		return nil
	}
	return util.CopyBytes(k.raw)
}

// Equal reports whether two keys hold the same material, in constant time.
func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	return subtle.ConstantTimeCompare(k.raw, other.raw) == 1
}

// Wipe zeroes the key material in place. The key must not be used afterward.
func (k *Key) Wipe() {
	if k == nil {
		return
	}
	util.WipeBytes(k.raw)
}

// ExportKey encodes the raw key material as standard base64.
func ExportKey(key *Key) (string, error) {
	if key == nil || len(key.raw) == 0 {
		return "", fmt.Errorf("key must not be nil")
	}
	return util.Base64Encode(key.raw), nil
}

// ImportKey reconstructs a key from its ExportKey encoding. The imported
// key is assigned a fresh ID.
func ImportKey(encoded string) (*Key, error) {
	raw, err := util.Base64Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding key: %w", err)
	}
	return NewKeyFromBytes(raw)
}
