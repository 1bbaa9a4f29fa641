package keyvault

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"lucky-agents/internal/config"
)

func testVault(t *testing.T) *Vault {
	t.Helper()
	v, err := NewWithKey([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	return v
}

func TestNewWithKeyRejectsShortKey(t *testing.T) {
	if _, err := NewWithKey([]byte("short")); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestNewDerivesKeyFromSecret(t *testing.T) {
	v, err := New(config.VaultConfig{Secret: "deployment-secret", Salt: "salt-v1"})
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	blob, err := v.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	// Same secret and salt must decrypt, a different secret must not.
	again, err := New(config.VaultConfig{Secret: "deployment-secret", Salt: "salt-v1"})
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	plain, err := again.Decrypt(blob)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if string(plain) != "payload" {
		t.Fatalf("plain = %q, want payload", plain)
	}

	other, err := New(config.VaultConfig{Secret: "wrong-secret", Salt: "salt-v1"})
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	if _, err := other.Decrypt(blob); !errors.Is(err, ErrCorruptKey) {
		t.Fatalf("expected ErrCorruptKey, got %v", err)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v := testVault(t)
	secret := []byte("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")

	blob, err := v.Encrypt(secret)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if parts := strings.Split(blob, ":"); len(parts) != 3 {
		t.Fatalf("blob = %q, want iv:tag:ciphertext", blob)
	}

	plain, err := v.Decrypt(blob)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(plain, secret) {
		t.Fatalf("plain = %q, want %q", plain, secret)
	}
}

func TestEncryptUsesFreshIV(t *testing.T) {
	v := testVault(t)
	a, err := v.Encrypt([]byte("x"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	b, err := v.Encrypt([]byte("x"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if a == b {
		t.Fatal("two encryptions of the same plaintext produced identical blobs")
	}
}

func TestDecryptRejectsTamperedBlob(t *testing.T) {
	v := testVault(t)
	blob, err := v.Encrypt([]byte("private-key"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	parts := strings.Split(blob, ":")
	flip := func(s string) string {
		b := []byte(s)
		if b[0] == 'a' {
			b[0] = 'b'
		} else {
			b[0] = 'a'
		}
		return string(b)
	}

	cases := map[string]string{
		"tampered ciphertext": parts[0] + ":" + parts[1] + ":" + flip(parts[2]),
		"tampered tag":        parts[0] + ":" + flip(parts[1]) + ":" + parts[2],
		"tampered iv":         flip(parts[0]) + ":" + parts[1] + ":" + parts[2],
		"missing field":       parts[0] + ":" + parts[1],
		"not hex":             "zz:" + parts[1] + ":" + parts[2],
	}
	for name, tampered := range cases {
		if _, err := v.Decrypt(tampered); !errors.Is(err, ErrCorruptKey) {
			t.Fatalf("%s: expected ErrCorruptKey, got %v", name, err)
		}
	}
}
