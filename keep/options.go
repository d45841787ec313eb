package keep

import (
	"log/slog"
	"time"

	"github.com/cofferlabs/coffer/storage"
)

// Storage selects which backend tier an operation touches.
type Storage string

const (
	// StorageDurable is the tier that survives restarts. Operations use it
	// by default.
	StorageDurable Storage = "durable"
	// StorageSession is the tier that lives for the lifetime of the process.
	StorageSession Storage = "session"
	// StorageMemory is the plain in-process map tier. It also backs any
	// tier whose backend was not configured.
	StorageMemory Storage = "memory"
)

// StoreOption configures a Store at construction time.
type StoreOption func(*Store)

// WithDurable sets the backend for the durable tier.
func WithDurable(b storage.Backend) StoreOption {
	return func(s *Store) {
		s.durable = b
	}
}

// WithSession sets the backend for the session tier.
func WithSession(b storage.Backend) StoreOption {
	return func(s *Store) {
		s.session = b
	}
}

// WithMemory replaces the default in-memory backend.
func WithMemory(b storage.Backend) StoreOption {
	return func(s *Store) {
		s.memory = b
	}
}

// WithLogger sets the logger used for degraded-mode and self-heal signals.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// WithCipher replaces the cryptographic primitives the store uses.
func WithCipher(c Cipher) StoreOption {
	return func(s *Store) {
		s.cipher = c
	}
}

type callOptions struct {
	storage    Storage
	ttl        time.Duration
	version    int
	hasVersion bool
	encrypt    bool
}

func defaultCallOptions() callOptions {
	return callOptions{storage: StorageDurable, encrypt: true}
}

func applyOptions(opts []Option) callOptions {
	o := defaultCallOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option adjusts a single store operation. Options an operation does not
// honor are ignored.
type Option func(*callOptions)

// WithStorage selects the backend tier for the operation. The default is
// StorageDurable.
func WithStorage(tier Storage) Option {
	return func(o *callOptions) {
		o.storage = tier
	}
}

// WithTTL expires the written item d after the write. Non-positive
// durations store the item without an expiry.
func WithTTL(d time.Duration) Option {
	return func(o *callOptions) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// WithVersion tags a write with a version number. On reads it sets the
// expected version: an item whose tag differs, or that carries no tag at
// all, is removed and reported absent.
func WithVersion(v int) Option {
	return func(o *callOptions) {
		o.version = v
		o.hasVersion = true
	}
}

// WithoutEncryption stores the value in clear. The envelope still records
// its metadata, and later reads return the value without key material.
func WithoutEncryption() Option {
	return func(o *callOptions) {
		o.encrypt = false
	}
}
