package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	key := DeriveKey("not-32-bytes")
	require.Len(t, key, 32)

	sealed, err := Encrypt([]byte("act.example-token"), key)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "example")

	again, err := Encrypt([]byte("act.example-token"), key)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again)

	plain, err := Decrypt(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, "act.example-token", plain)
}

func TestDecrypt_WrongKey(t *testing.T) {
	sealed, err := Encrypt([]byte("secret"), DeriveKey("a"))
	require.NoError(t, err)

	_, err = Decrypt(sealed, DeriveKey("b"))
	assert.Error(t, err)
}

func TestDecrypt_Garbage(t *testing.T) {
	_, err := Decrypt("!!!", DeriveKey("a"))
	assert.Error(t, err)

	_, err = Decrypt("YWJj", DeriveKey("a"))
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}
