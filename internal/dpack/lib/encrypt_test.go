package lib

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpack-io/dpack/internal/dpack/types"
)

func TestVerifyPassword(t *testing.T) {
	password, err := VerifyPassword("correct horse", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "correct horse", password)
}

func TestVerifyPasswordMismatch(t *testing.T) {
	_, err := VerifyPassword("first", "second")
	assert.ErrorIs(t, err, types.ErrPasswordMismatch)
}

func TestVerifyPasswordEmpty(t *testing.T) {
	_, err := VerifyPassword("", "")
	assert.Error(t, err)
}

func TestEncryptWriterRoundTrip(t *testing.T) {
	var ciphertext bytes.Buffer

	w, err := EncryptWriter(&ciphertext, "passphrase")
	require.NoError(t, err)
	_, err = w.Write([]byte("plaintext payload"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Ciphertext must not contain the plaintext.
	assert.NotContains(t, ciphertext.String(), "plaintext payload")

	r, err := DecryptReader(bytes.NewReader(ciphertext.Bytes()), "passphrase")
	require.NoError(t, err)
	plaintext, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "plaintext payload", string(plaintext))
}

func TestDecryptReaderWrongPassword(t *testing.T) {
	var ciphertext bytes.Buffer
	w, err := EncryptWriter(&ciphertext, "right")
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = DecryptReader(bytes.NewReader(ciphertext.Bytes()), "wrong")
	assert.Error(t, err)
}

func TestEncryptionSaltIsRandom(t *testing.T) {
	// Same password, same plaintext: ciphertexts must differ because
	// the salt is random per invocation.
	encrypt := func() []byte {
		var buffer bytes.Buffer
		w, err := EncryptWriter(&buffer, "password")
		require.NoError(t, err)
		_, err = w.Write([]byte("identical input"))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		return buffer.Bytes()
	}

	assert.NotEqual(t, encrypt(), encrypt())
}
