package keep

import "errors"

var (
	// ErrMissingPassword indicates password-mode initialization without a password.
	ErrMissingPassword = errors.New("password mode requires a password")
	// ErrMissingKey indicates provided-mode initialization without a key.
	ErrMissingKey = errors.New("provided mode requires a key")
	// ErrUnknownKeyMode indicates an unrecognized key mode in the configuration.
	ErrUnknownKeyMode = errors.New("unknown key mode")
	// ErrNotInitialized indicates an operation that needs an active key was
	// called on an uninitialized store.
	ErrNotInitialized = errors.New("store is not initialized")
)
