package vault

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	v, err := Open(t.TempDir(), "")
	require.NoError(t, err)

	ciphertext, err := v.Encrypt("sk-test-12345")
	require.NoError(t, err)
	assert.NotEqual(t, "sk-test-12345", ciphertext)

	plaintext, err := v.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-12345", plaintext)
}

func TestEncrypt_SamePlaintextDifferentCiphertext(t *testing.T) {
	v, err := Open(t.TempDir(), "")
	require.NoError(t, err)

	c1, err := v.Encrypt("secret")
	require.NoError(t, err)
	c2, err := v.Encrypt("secret")
	require.NoError(t, err)

	assert.NotEqual(t, c1, c2)
}

func TestDecrypt_Failures(t *testing.T) {
	v, err := Open(t.TempDir(), "")
	require.NoError(t, err)

	valid, err := v.Encrypt("secret")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(valid)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name  string
		input string
	}{
		{"not base64", "%%%not-base64%%%"},
		{"too short", base64.StdEncoding.EncodeToString([]byte("short"))},
		{"tampered", tampered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Decrypt(tt.input)
			assert.ErrorIs(t, err, ErrDecrypt)
		})
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	v1, err := Open(t.TempDir(), "")
	require.NoError(t, err)
	v2, err := Open(t.TempDir(), "")
	require.NoError(t, err)

	ciphertext, err := v1.Encrypt("secret")
	require.NoError(t, err)

	_, err = v2.Decrypt(ciphertext)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestOpen_KeySurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	v1, err := Open(dir, "")
	require.NoError(t, err)
	ciphertext, err := v1.Encrypt("secret")
	require.NoError(t, err)

	v2, err := Open(dir, "")
	require.NoError(t, err)
	plaintext, err := v2.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "secret", plaintext)
}

func TestOpen_CorruptKeyFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.key"), []byte("!!!not-base64!!!"), 0o600))

	_, err := Open(dir, "")
	assert.Error(t, err)
}

func TestOpen_WrongKeyLengthIsFatal(t *testing.T) {
	dir := t.TempDir()
	short := base64.StdEncoding.EncodeToString([]byte("too-short"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.key"), []byte(short), 0o600))

	_, err := Open(dir, "")
	assert.Error(t, err)
}

func TestOpen_PassphraseDerivationIsDeterministic(t *testing.T) {
	dir := t.TempDir()

	v1, err := Open(dir, "correct horse battery staple")
	require.NoError(t, err)
	ciphertext, err := v1.Encrypt("secret")
	require.NoError(t, err)

	// same passphrase, same persisted salt: same key
	v2, err := Open(dir, "correct horse battery staple")
	require.NoError(t, err)
	plaintext, err := v2.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "secret", plaintext)

	// no raw key file is written in passphrase mode
	_, err = os.Stat(filepath.Join(dir, "secret.key"))
	assert.True(t, os.IsNotExist(err))
}

func TestOpen_WrongPassphraseCannotDecrypt(t *testing.T) {
	dir := t.TempDir()

	v1, err := Open(dir, "passphrase-one")
	require.NoError(t, err)
	ciphertext, err := v1.Encrypt("secret")
	require.NoError(t, err)

	v2, err := Open(dir, "passphrase-two")
	require.NoError(t, err)
	_, err = v2.Decrypt(ciphertext)
	assert.ErrorIs(t, err, ErrDecrypt)
}
