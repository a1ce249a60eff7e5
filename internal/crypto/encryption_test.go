package crypto

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(seed byte) string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = seed + byte(i)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestNewEncryptor(t *testing.T) {
	t.Run("valid 32-byte key", func(t *testing.T) {
		encryptor, err := NewEncryptor(testKey(0))
		require.NoError(t, err)
		assert.NotNil(t, encryptor)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := NewEncryptor("not-valid-base64!!!")
		assert.Error(t, err)
	})

	t.Run("wrong key length", func(t *testing.T) {
		_, err := NewEncryptor(base64.StdEncoding.EncodeToString(make([]byte, 16)))
		assert.ErrorContains(t, err, "must be 32 bytes")
	})
}

func TestEncryptDecrypt(t *testing.T) {
	encryptor, err := NewEncryptor(testKey(0))
	require.NoError(t, err)

	testCases := []struct {
		name      string
		plaintext string
	}{
		{"mailbox password", "P@ssw0rd!#$%^&*()"},
		{"empty string", ""},
		{"unicode", "пароль密码🔐"},
		{"refresh token", "1//0gLongRefreshTokenValueWithManyCharacters-_"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sealed, err := encryptor.Encrypt(tc.plaintext)
			require.NoError(t, err)
			assert.NotEmpty(t, sealed)

			decrypted, err := encryptor.Decrypt(sealed)
			require.NoError(t, err)
			assert.Equal(t, tc.plaintext, decrypted)
		})
	}
}

func TestEncryptProducesDifferentCiphertext(t *testing.T) {
	encryptor, err := NewEncryptor(testKey(0))
	require.NoError(t, err)

	first, err := encryptor.Encrypt("same token")
	require.NoError(t, err)
	second, err := encryptor.Encrypt("same token")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "nonce should differ between calls")
}

func TestDecryptInvalidCiphertext(t *testing.T) {
	encryptor, err := NewEncryptor(testKey(0))
	require.NoError(t, err)

	t.Run("too short", func(t *testing.T) {
		_, err := encryptor.Decrypt([]byte("short"))
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("corrupted data", func(t *testing.T) {
		sealed, err := encryptor.Encrypt("test")
		require.NoError(t, err)
		sealed[len(sealed)-1] ^= 0xFF

		_, err = encryptor.Decrypt(sealed)
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("different key", func(t *testing.T) {
		sealed, err := encryptor.Encrypt("test")
		require.NoError(t, err)

		other, err := NewEncryptor(testKey(7))
		require.NoError(t, err)
		_, err = other.Decrypt(sealed)
		assert.ErrorIs(t, err, ErrDecrypt)
	})
}

func TestSealJSON(t *testing.T) {
	type token struct {
		AccessToken  string    `json:"access_token"`
		RefreshToken string    `json:"refresh_token"`
		Expiry       time.Time `json:"expiry"`
	}

	encryptor, err := NewEncryptor(testKey(0))
	require.NoError(t, err)

	in := token{AccessToken: "ya29.a", RefreshToken: "1//r", Expiry: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	sealed, err := encryptor.SealJSON(in)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "ya29")

	var out token
	require.NoError(t, encryptor.OpenJSON(sealed, &out))
	assert.Equal(t, in, out)

	assert.ErrorIs(t, encryptor.OpenJSON([]byte("garbage-garbage-garbage"), &out), ErrDecrypt)
}
