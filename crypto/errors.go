package crypto

import "errors"

var (
	// ErrUnavailable indicates the AEAD or KDF primitives cannot be used in this process.
	ErrUnavailable = errors.New("encryption primitives unavailable")
	// ErrAuthentication indicates a payload failed integrity verification during decryption.
	ErrAuthentication = errors.New("payload authentication failed")
	// ErrSerialization indicates a value could not be JSON-encoded or -decoded.
	ErrSerialization = errors.New("value not serializable")
)
