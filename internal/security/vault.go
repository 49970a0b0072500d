package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// Vault encrypts credential material before it reaches storage. A Vault
// built from an empty key passes values through unchanged, which keeps
// development setups working without an ENCRYPTION_KEY.
type Vault struct {
	key []byte
}

// NewVault builds a vault from a base64-encoded 32-byte key. An empty
// string yields a pass-through vault.
func NewVault(b64 string) (*Vault, error) {
	if b64 == "" {
		return &Vault{}, nil
	}
	k, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	if len(k) != 32 {
		return nil, errors.New("ENCRYPTION_KEY must decode to 32 bytes")
	}
	return &Vault{key: k}, nil
}

// Enabled reports whether values are actually encrypted.
func (v *Vault) Enabled() bool {
	return len(v.key) == 32
}

// Encrypt returns base64url(nonce|ciphertext), or the plaintext unchanged
// for a pass-through vault.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if !v.Enabled() {
		return plaintext, nil
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	out := append(nonce, ct...)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func (v *Vault) Decrypt(value string) (string, error) {
	if !v.Enabled() {
		return value, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	ns := gcm.NonceSize()
	if len(raw) < ns {
		return "", errors.New("ciphertext too short")
	}

	nonce := raw[:ns]
	ct := raw[ns:]
	pt, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
