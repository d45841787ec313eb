// Package keep implements an encrypted key-value store layered over
// pluggable backends.
//
// A Store namespaces every entry, wraps each value in a small JSON
// envelope carrying its metadata, and encrypts values with AES-256-GCM
// using a key established by Initialize. The key never rests in plain
// memory between operations; it is sealed in a memguard enclave and
// opened only for the duration of a single encrypt or decrypt.
//
// Entries may carry an expiry and a version tag. Reads treat expired,
// mismatched, or undecodable entries as absent and remove them, so a
// damaged entry never wedges its key. Writes requested before Initialize,
// or when the AES primitives fail their self-test, fall back to clear
// storage with a logged warning rather than failing.
package keep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/awnumar/memguard"
	"github.com/cofferlabs/coffer/crypto"
	"github.com/cofferlabs/coffer/internal/util"
	"github.com/cofferlabs/coffer/storage"
	"github.com/cofferlabs/coffer/storage/memory"
)

// KeyMode selects how Initialize obtains the active key.
type KeyMode string

const (
	// KeyModeSession generates a fresh random key held only in memory.
	// Encrypted entries become unreadable once the store is destroyed.
	KeyModeSession KeyMode = "session"
	// KeyModePassword derives the key from Config.Password with PBKDF2.
	// The salt is persisted in the durable backend so the same password
	// yields the same key across restarts.
	KeyModePassword KeyMode = "password"
	// KeyModeProvided copies the key from Config.Key. The caller keeps
	// ownership of the original.
	KeyModeProvided KeyMode = "provided"
)

// Config carries the key material inputs for Initialize and RotateKey.
type Config struct {
	Mode KeyMode

	// Password is required in KeyModePassword.
	Password string

	// Key is required in KeyModeProvided.
	Key *crypto.Key

	// Iterations overrides the PBKDF2 iteration count in KeyModePassword.
	// It is not persisted; callers using a non-default count must supply
	// it on every Initialize. Non-positive values select the default.
	Iterations int
}

// Store is an encrypted key-value store. All methods are safe for
// concurrent use.
type Store struct {
	mu     sync.RWMutex
	cipher Cipher
	logger *slog.Logger

	durable storage.Backend
	session storage.Backend
	memory  storage.Backend

	initialized bool
	mode        KeyMode
	key         *memguard.Enclave
	keyID       string
	salt        []byte
}

// New assembles a Store. Without options it runs on a single in-memory
// backend and stays in clear-storage mode until Initialize establishes a
// key.
func New(opts ...StoreOption) *Store {
	s := &Store{
		cipher: stdCipher{},
		logger: slog.Default(),
		memory: memory.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.memory == nil {
		s.memory = memory.New()
	}
	return s
}

// Initialize establishes the active key according to cfg. Calling it on an
// already initialized store replaces the key; entries written under the
// previous key stay in the backends and are dropped lazily when reads fail
// to authenticate them. Use RotateKey to carry entries across a key change.
//
// When the encryption primitives are unavailable, Initialize still marks
// the store initialized after validating cfg, logging a warning: the store
// operates, holding values in clear, and EncryptionAvailable reports false.
func (s *Store) Initialize(ctx context.Context, cfg Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initializeLocked(cfg)
}

func (s *Store) initializeLocked(cfg Config) error {
	switch cfg.Mode {
	case KeyModeSession, KeyModePassword, KeyModeProvided:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKeyMode, cfg.Mode)
	}
	if cfg.Mode == KeyModePassword && cfg.Password == "" {
		return ErrMissingPassword
	}
	if cfg.Mode == KeyModeProvided && cfg.Key == nil {
		return ErrMissingKey
	}

	// With broken primitives the store still initializes, it just runs in
	// clear. No key is established; writes log their degradation per call.
	if !s.cipher.Available() {
		s.logger.Warn("encryption primitives unavailable, store will hold values in clear", "mode", cfg.Mode)
		s.key = nil
		s.keyID = ""
		util.WipeBytes(s.salt)
		s.salt = nil
		s.mode = cfg.Mode
		s.initialized = true
		return nil
	}

	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = crypto.DefaultIterations
	}

	var salt []byte
	switch cfg.Mode {
	case KeyModeSession:
		key, err := s.cipher.GenerateKey()
		if err != nil {
			return fmt.Errorf("generating session key: %w", err)
		}
		err = s.sealKeyLocked(key)
		key.Wipe()
		if err != nil {
			return err
		}
	case KeyModePassword:
		loaded, err := s.loadOrCreateSaltLocked()
		if err != nil {
			return err
		}
		key, _, err := s.cipher.DeriveKey(cfg.Password, loaded, iterations)
		if err != nil {
			return fmt.Errorf("deriving key: %w", err)
		}
		err = s.sealKeyLocked(key)
		key.Wipe()
		if err != nil {
			return err
		}
		salt = loaded
	case KeyModeProvided:
		if err := s.sealKeyLocked(cfg.Key); err != nil {
			return fmt.Errorf("%w: %v", ErrMissingKey, err)
		}
	}

	util.WipeBytes(s.salt)
	s.salt = salt
	s.mode = cfg.Mode
	s.initialized = true
	return nil
}

// sealKeyLocked copies the key material into a fresh enclave. The caller
// remains responsible for wiping key if it owns it.
func (s *Store) sealKeyLocked(key *crypto.Key) error {
	raw := key.Bytes()
	if len(raw) != util.AESKeySize {
		return fmt.Errorf("invalid key length: got %d, want %d", len(raw), util.AESKeySize)
	}
	s.key = memguard.NewEnclave(raw)
	s.keyID = key.ID()
	return nil
}

// withKeyLocked opens the sealed key for the duration of fn. The unsealed
// material is destroyed before it returns.
func (s *Store) withKeyLocked(fn func(*crypto.Key) error) error {
	if s.key == nil {
		return ErrNotInitialized
	}
	buf, err := s.key.Open()
	if err != nil {
		return fmt.Errorf("opening key enclave: %w", err)
	}
	defer buf.Destroy()
	key, err := crypto.NewKeyFromBytes(buf.Bytes())
	if err != nil {
		return err
	}
	defer key.Wipe()
	return fn(key)
}

// loadOrCreateSaltLocked returns the persisted derivation salt, creating
// and persisting a fresh one on first use. The salt lives in the durable
// backend so password-derived keys are stable across restarts.
func (s *Store) loadOrCreateSaltLocked() ([]byte, error) {
	backend := s.backendFor(StorageDurable)
	raw, err := backend.Get(saltKey)
	switch {
	case err == nil:
		salt, err := decodeSalt(raw)
		if err != nil {
			return nil, fmt.Errorf("persisted salt is unreadable: %w", err)
		}
		return salt, nil
	case errors.Is(err, storage.ErrNotFound):
		salt, err := crypto.GenerateSalt(crypto.DefaultSaltLength)
		if err != nil {
			return nil, fmt.Errorf("generating salt: %w", err)
		}
		encoded, err := encodeSalt(salt)
		if err != nil {
			return nil, err
		}
		if err := backend.Set(saltKey, encoded); err != nil {
			return nil, fmt.Errorf("persisting salt: %w", err)
		}
		return salt, nil
	default:
		return nil, fmt.Errorf("loading salt: %w", err)
	}
}

// backendFor resolves a tier to a configured backend, falling back to the
// in-memory backend for tiers that were not wired up.
func (s *Store) backendFor(tier Storage) storage.Backend {
	switch tier {
	case StorageSession:
		if s.session != nil {
			return s.session
		}
	case StorageMemory:
	default:
		if s.durable != nil {
			return s.durable
		}
	}
	return s.memory
}

// Destroy discards the active key and wipes the derivation salt from
// memory, returning the store to its uninitialized state. Stored entries
// are left untouched; encrypted ones become unreadable until Initialize
// establishes the same key again.
func (s *Store) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = nil
	s.keyID = ""
	util.WipeBytes(s.salt)
	s.salt = nil
	s.mode = ""
	s.initialized = false
}

// Initialized reports whether a key is active.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// EncryptionAvailable reports whether writes will actually be encrypted:
// the store is initialized and the AES primitives pass their self-test.
func (s *Store) EncryptionAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized && s.cipher.Available()
}

// Mode returns the key mode of the active key, or the empty string when
// the store is uninitialized.
func (s *Store) Mode() KeyMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// KeyID returns the identifier of the active key, or the empty string when
// the store is uninitialized. The identifier names the key in logs without
// exposing material.
func (s *Store) KeyID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keyID
}
