// Package vault implements the symmetric credential vault: one process-wide
// AES-256-GCM key, loaded from or generated into the deployment directory,
// used to encrypt per-user secrets at rest.
//
// The key is either 32 random bytes persisted base64-encoded in secret.key,
// or, when a passphrase is configured, derived with argon2id over a random
// persisted salt so the key material itself never touches disk.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"

	"github.com/canvai/canvai/internal/common"
)

const (
	keyFileName  = "secret.key"
	saltFileName = "secret.salt"

	keySize   = 32
	nonceSize = 12
)

// ErrDecrypt is returned for any ciphertext that fails to authenticate:
// truncated input, tampering, or a wrong key. Match with errors.Is.
var ErrDecrypt = common.ErrDecrypt

// Vault encrypts and decrypts secrets with a single symmetric key. Stateless
// besides the key; safe for concurrent use.
type Vault struct {
	aead cipher.AEAD
}

// Open loads or creates the vault key under dir and returns a ready Vault.
//
// With an empty passphrase the raw key lives in dir/secret.key. With a
// passphrase the key is derived (argon2id, t=1, m=64MiB, p=4) from a random
// salt persisted in dir/secret.salt.
//
// Any unreadable or corrupt key material is fatal: the error must abort
// startup of everything depending on the vault.
func Open(dir string, passphrase string) (*Vault, error) {
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return nil, fmt.Errorf("vault dir %s: %w", dir, err)
	}

	var key []byte
	var err error
	if passphrase != "" {
		key, err = deriveKey(filepath.Join(dir, saltFileName), []byte(passphrase))
	} else {
		key, err = loadOrGenerateKey(filepath.Join(dir, keyFileName))
	}
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// loadOrGenerateKey reads an existing base64-encoded key file, or generates
// a fresh random key and persists it with owner-only permissions.
func loadOrGenerateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		key, decodeErr := base64.StdEncoding.DecodeString(string(data))
		if decodeErr != nil {
			return nil, fmt.Errorf("key file %s is corrupt: %w", path, decodeErr)
		}
		if len(key) != keySize {
			return nil, fmt.Errorf("key file %s: unexpected key length %d", path, len(key))
		}
		return key, nil

	case os.IsNotExist(err):
		key := make([]byte, keySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate key: %w", err)
		}
		encoded := base64.StdEncoding.EncodeToString(key)
		if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
			return nil, fmt.Errorf("persist key file %s: %w", path, err)
		}
		return key, nil

	default:
		return nil, fmt.Errorf("read key file %s: %w", path, err)
	}
}

// deriveKey derives the vault key from a passphrase with argon2id. The salt
// is generated once and persisted next to where the raw key would live.
func deriveKey(saltPath string, passphrase []byte) ([]byte, error) {
	salt, err := os.ReadFile(saltPath)
	if os.IsNotExist(err) {
		salt = make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		if err := os.WriteFile(saltPath, salt, 0o600); err != nil {
			return nil, fmt.Errorf("persist salt file %s: %w", saltPath, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("read salt file %s: %w", saltPath, err)
	}

	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, keySize), nil
}

// Encrypt seals plaintext with a fresh random nonce and returns
// base64(nonce || ciphertext). Two calls on identical plaintext produce
// different output because the nonce is never reused.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. All failure modes collapse into ErrDecrypt so
// callers can uniformly skip a bad record; the underlying cause is wrapped
// for logs.
func (v *Vault) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	if len(raw) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	return string(plaintext), nil
}
