// Package storage defines the key-value backend contract used by the
// secure store, plus sentinel errors shared by all implementations.
package storage

import "errors"

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// Backend is a minimal string key-value store. Implementations must be
// safe for concurrent use. Values are opaque; callers own any framing.
// A backend may hold keys written by other software, so implementations
// must not assume exclusive ownership of the key space.
type Backend interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) (string, error)
	// Set stores value under key, overwriting any existing value.
	Set(key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
	// Keys returns all keys currently present, in no particular order.
	Keys() ([]string, error)
}
