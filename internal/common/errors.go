// Package common defines shared sentinel errors used across the companion
// core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Vault errors. ErrDecrypt covers tampered or truncated ciphertext and
	// a wrong key; a single bad record is skipped, never fatal.
	ErrDecrypt = errors.New("decryption failed")

	// Tiler input validation.
	ErrInvalidGrid = errors.New("invalid grid dimensions")
)
