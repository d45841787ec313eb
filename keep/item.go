package keep

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cofferlabs/coffer/crypto"
)

// keyPrefix namespaces every backend key the store touches, keeping its
// entries apart from anything else sharing the backend.
const keyPrefix = "coffer:"

// saltKey is the reserved backend key holding the password-derivation salt.
// It never appears in Keys listings and Clear leaves it in place.
const saltKey = keyPrefix + "_salt"

func namespacedKey(key string) string {
	return keyPrefix + key
}

func logicalKey(namespaced string) string {
	return strings.TrimPrefix(namespaced, keyPrefix)
}

// storedItem is the envelope written to a backend for every entry. Exactly
// one of Payload and Value is set, according to Encrypted.
type storedItem struct {
	Encrypted bool                     `json:"encrypted"`
	Payload   *crypto.EncryptedPayload `json:"payload,omitempty"`
	Value     json.RawMessage          `json:"value,omitempty"`
	CreatedAt int64                    `json:"createdAt"`
	ExpiresAt int64                    `json:"expiresAt,omitempty"`
	Version   *int                     `json:"version,omitempty"`
}

// versionMatches reports whether the item carries exactly the expected
// version tag. An untagged item never matches, so version 0 still fences.
func (it *storedItem) versionMatches(expected int) bool {
	return it.Version != nil && *it.Version == expected
}

func (it *storedItem) validate() error {
	if it.Encrypted {
		if it.Payload == nil {
			return errors.New("encrypted item has no payload")
		}
		if len(it.Value) != 0 {
			return errors.New("encrypted item carries a clear value")
		}
		return nil
	}
	if len(it.Value) == 0 {
		return errors.New("clear item has no value")
	}
	if it.Payload != nil {
		return errors.New("clear item carries an encrypted payload")
	}
	return nil
}

// expired reports whether the item's expiry, if any, has passed. Both
// sides are epoch milliseconds.
func (it *storedItem) expired(now int64) bool {
	return it.ExpiresAt != 0 && now >= it.ExpiresAt
}

// The salt is persisted as a plain JSON array of byte values so it stays
// readable before any key material exists.
func encodeSalt(salt []byte) (string, error) {
	vals := make([]int, len(salt))
	for i, b := range salt {
		vals[i] = int(b)
	}
	data, err := json.Marshal(vals)
	if err != nil {
		return "", fmt.Errorf("encoding salt: %w", err)
	}
	return string(data), nil
}

func decodeSalt(raw string) ([]byte, error) {
	var vals []int
	if err := json.Unmarshal([]byte(raw), &vals); err != nil {
		return nil, fmt.Errorf("decoding salt: %w", err)
	}
	if len(vals) == 0 {
		return nil, errors.New("decoding salt: empty array")
	}
	salt := make([]byte, len(vals))
	for i, v := range vals {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("decoding salt: value %d at index %d out of byte range", v, i)
		}
		salt[i] = byte(v)
	}
	return salt, nil
}
