package security

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestVaultRoundTrip(t *testing.T) {
	vault, err := NewVault(testKey())
	require.NoError(t, err)
	require.True(t, vault.Enabled())

	ciphertext, err := vault.Encrypt("shpat_secret_token")
	require.NoError(t, err)
	assert.NotEqual(t, "shpat_secret_token", ciphertext)

	plaintext, err := vault.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "shpat_secret_token", plaintext)
}

func TestVaultCiphertextsDiffer(t *testing.T) {
	vault, err := NewVault(testKey())
	require.NoError(t, err)

	a, err := vault.Encrypt("same value")
	require.NoError(t, err)
	b, err := vault.Encrypt("same value")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVaultRejectsTamperedCiphertext(t *testing.T) {
	vault, err := NewVault(testKey())
	require.NoError(t, err)

	ciphertext, err := vault.Encrypt("token")
	require.NoError(t, err)

	tampered := []byte(ciphertext)
	if tampered[0] == 'A' {
		tampered[0] = 'B'
	} else {
		tampered[0] = 'A'
	}
	_, err = vault.Decrypt(string(tampered))
	require.Error(t, err)
}

func TestVaultPassThroughWithoutKey(t *testing.T) {
	vault, err := NewVault("")
	require.NoError(t, err)
	require.False(t, vault.Enabled())

	out, err := vault.Encrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", out)

	out, err = vault.Decrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", out)
}

func TestNewVaultRejectsBadKeys(t *testing.T) {
	_, err := NewVault("not base64 at all!!!")
	require.Error(t, err)

	short := base64.StdEncoding.EncodeToString([]byte("too short"))
	_, err = NewVault(short)
	require.Error(t, err)
}
