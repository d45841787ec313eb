package keep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cofferlabs/coffer/crypto"
	"github.com/cofferlabs/coffer/internal/util"
	"github.com/cofferlabs/coffer/storage"
)

func validateKey(key string) error {
	if key == "" {
		return errors.New("key must not be empty")
	}
	return nil
}

// Set stores value under key. The value is marshaled to JSON and, when a
// key is active and the primitives are healthy, encrypted. Otherwise it is
// stored in clear with a logged warning, unless WithoutEncryption already
// asked for that.
func (s *Store) Set(ctx context.Context, key string, value any, opts ...Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}
	o := applyOptions(opts)

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", crypto.ErrSerialization, err)
	}
	defer util.WipeBytes(raw)

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UnixMilli()
	item := storedItem{CreatedAt: now}
	if o.ttl > 0 {
		item.ExpiresAt = now + o.ttl.Milliseconds()
	}
	if o.hasVersion {
		v := o.version
		item.Version = &v
	}

	encrypt := o.encrypt
	if encrypt && !(s.initialized && s.cipher.Available()) {
		s.logger.Warn("encryption unavailable, storing value in clear", "key", key)
		encrypt = false
	}
	item.Encrypted = encrypt

	data, err := s.sealItemLocked(&item, raw)
	if err != nil {
		return err
	}
	if err := s.backendFor(o.storage).Set(namespacedKey(key), string(data)); err != nil {
		return fmt.Errorf("storing %q: %w", key, err)
	}
	return nil
}

// sealItemLocked fills the item's payload or clear value from raw and
// marshals the envelope.
func (s *Store) sealItemLocked(item *storedItem, raw json.RawMessage) ([]byte, error) {
	if item.Encrypted {
		payload, err := s.encryptLocked(raw)
		if err != nil {
			return nil, err
		}
		item.Payload = payload
		item.Value = nil
	} else {
		item.Value = raw
		item.Payload = nil
	}
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", crypto.ErrSerialization, err)
	}
	return data, nil
}

// encryptLocked seals raw under the active key. Password-derived keys
// embed their salt in the payload so it stays self-describing.
func (s *Store) encryptLocked(raw json.RawMessage) (*crypto.EncryptedPayload, error) {
	var payload *crypto.EncryptedPayload
	err := s.withKeyLocked(func(key *crypto.Key) error {
		var salt []byte
		if s.mode == KeyModePassword {
			salt = s.salt
		}
		p, err := s.cipher.Encrypt(raw, key, salt)
		if err != nil {
			return err
		}
		payload = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("encrypting value: %w", err)
	}
	return payload, nil
}

func (s *Store) decryptLocked(payload *crypto.EncryptedPayload) (json.RawMessage, error) {
	var raw json.RawMessage
	err := s.withKeyLocked(func(key *crypto.Key) error {
		return s.cipher.Decrypt(payload, key, &raw)
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Get loads the value stored under key into dest, which must be a pointer,
// and reports whether the key was present. A nil dest checks presence
// without decoding. Entries that are expired, fail the version fence, or
// cannot be parsed or authenticated are removed and reported absent.
func (s *Store) Get(ctx context.Context, key string, dest any, opts ...Option) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validateKey(key); err != nil {
		return false, err
	}
	o := applyOptions(opts)

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, raw, ok := s.readItemLocked(s.backendFor(o.storage), key, o)
	if !ok {
		return false, nil
	}
	if dest != nil {
		if err := json.Unmarshal(raw, dest); err != nil {
			return false, fmt.Errorf("%w: %v", crypto.ErrSerialization, err)
		}
	}
	return true, nil
}

// Has reports whether key holds a live, readable entry.
func (s *Store) Has(ctx context.Context, key string, opts ...Option) (bool, error) {
	return s.Get(ctx, key, nil, opts...)
}

// readItemLocked loads and unseals the entry stored under key. It returns
// ok=false for anything a caller must treat as absent, removing entries
// that can never be read again. Encrypted entries found while no key is
// active are left in place.
func (s *Store) readItemLocked(backend storage.Backend, key string, o callOptions) (*storedItem, json.RawMessage, bool) {
	nk := namespacedKey(key)
	stored, err := backend.Get(nk)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("reading entry failed", "key", key, "error", err)
		}
		return nil, nil, false
	}

	var item storedItem
	if err := json.Unmarshal([]byte(stored), &item); err != nil {
		s.logger.Warn("removing unparsable entry", "key", key, "error", err)
		s.removeQuiet(backend, nk)
		return nil, nil, false
	}
	if err := item.validate(); err != nil {
		s.logger.Warn("removing malformed entry", "key", key, "error", err)
		s.removeQuiet(backend, nk)
		return nil, nil, false
	}
	if item.expired(time.Now().UnixMilli()) {
		s.removeQuiet(backend, nk)
		return nil, nil, false
	}
	if o.hasVersion && !item.versionMatches(o.version) {
		s.removeQuiet(backend, nk)
		return nil, nil, false
	}

	if !item.Encrypted {
		return &item, item.Value, true
	}
	if !s.initialized || !s.cipher.Available() {
		s.logger.Error("cannot decrypt entry, no active key", "key", key)
		return nil, nil, false
	}
	raw, err := s.decryptLocked(item.Payload)
	if err != nil {
		s.logger.Warn("removing undecryptable entry", "key", key, "error", err)
		s.removeQuiet(backend, nk)
		return nil, nil, false
	}
	return &item, raw, true
}

// removeQuiet deletes a namespaced entry during read-side self-healing.
// The read already reports the entry absent, so removal failures are
// deliberately dropped.
func (s *Store) removeQuiet(backend storage.Backend, namespaced string) {
	_ = backend.Remove(namespaced)
}

// Remove deletes the entry stored under key. Removing an absent key is not
// an error.
func (s *Store) Remove(ctx context.Context, key string, opts ...Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}
	o := applyOptions(opts)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.backendFor(o.storage).Remove(namespacedKey(key)); err != nil {
		return fmt.Errorf("removing %q: %w", key, err)
	}
	return nil
}

// Clear removes every entry in the selected tier. The persisted derivation
// salt stays in place so password-derived keys keep working.
func (s *Store) Clear(ctx context.Context, opts ...Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o := applyOptions(opts)

	s.mu.RLock()
	defer s.mu.RUnlock()

	backend := s.backendFor(o.storage)
	namespaced, err := s.ownedKeysLocked(backend)
	if err != nil {
		return err
	}
	for _, nk := range namespaced {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := backend.Remove(nk); err != nil {
			return fmt.Errorf("removing %q: %w", logicalKey(nk), err)
		}
	}
	return nil
}

// Keys lists the logical keys present in the selected tier, sorted. The
// listing reflects raw backend contents; entries pending lazy expiry still
// appear until a read removes them.
func (s *Store) Keys(ctx context.Context, opts ...Option) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	s.mu.RLock()
	defer s.mu.RUnlock()

	namespaced, err := s.ownedKeysLocked(s.backendFor(o.storage))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(namespaced))
	for _, nk := range namespaced {
		keys = append(keys, logicalKey(nk))
	}
	sort.Strings(keys)
	return keys, nil
}

// ownedKeysLocked enumerates the namespaced backend keys belonging to the
// store, excluding the salt entry.
func (s *Store) ownedKeysLocked(backend storage.Backend) ([]string, error) {
	all, err := backend.Keys()
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	owned := make([]string, 0, len(all))
	for _, k := range all {
		if !strings.HasPrefix(k, keyPrefix) || k == saltKey {
			continue
		}
		owned = append(owned, k)
	}
	return owned, nil
}
