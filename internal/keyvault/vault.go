package keyvault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"

	"lucky-agents/internal/config"
)

// ErrCorruptKey is returned whenever a stored key blob cannot be
// authenticated. A failed decrypt means the agent cannot sign this cycle,
// so callers must surface it rather than fall through.
var ErrCorruptKey = errors.New("corrupt_key_blob")

const ivSize = 16

// Vault seals agent private keys with AES-256-GCM. The 32-byte key is
// derived once from the deployment secret; blobs are serialized as
// hex(iv):hex(tag):hex(ciphertext).
type Vault struct {
	aead cipher.AEAD
}

func New(cfg config.VaultConfig) (*Vault, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("vault secret is empty")
	}
	key, err := scrypt.Key([]byte(secret), []byte(cfg.Salt), 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive vault key: %w", err)
	}
	return NewWithKey(key)
}

// NewWithKey builds a vault from a raw 32-byte key, bypassing the KDF.
func NewWithKey(key []byte) (*Vault, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("vault key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Vault{aead: aead}, nil
}

func (v *Vault) Encrypt(plaintext []byte) (string, error) {
	if v == nil || v.aead == nil {
		return "", errors.New("vault is not configured")
	}
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("read iv: %w", err)
	}

	sealed := v.aead.Seal(nil, iv, plaintext, nil)
	tagStart := len(sealed) - v.aead.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ciphertext), nil
}

func (v *Vault) Decrypt(blob string) ([]byte, error) {
	if v == nil || v.aead == nil {
		return nil, errors.New("vault is not configured")
	}
	parts := strings.Split(blob, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected iv:tag:ciphertext", ErrCorruptKey)
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivSize {
		return nil, fmt.Errorf("%w: bad iv", ErrCorruptKey)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != v.aead.Overhead() {
		return nil, fmt.Errorf("%w: bad tag", ErrCorruptKey)
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext", ErrCorruptKey)
	}

	plaintext, err := v.aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", ErrCorruptKey)
	}
	return plaintext, nil
}
