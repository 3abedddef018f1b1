package piivault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// storedFieldVersion is the StoredField framing version. Bump only on an
// incompatible layout change.
const storedFieldVersion byte = 0x01

// storedFieldOverhead is the framing cost before the sealed ciphertext:
// version byte, key-version byte, 12-byte GCM nonce.
const storedFieldOverhead = 2 + gcmNonceSize

const gcmNonceSize = 12

// FieldCipher provides reversible, authenticated encryption of single text
// values. Stateless apart from the injected key material; safe for
// concurrent use.
type FieldCipher struct {
	aead       cipher.AEAD
	keyVersion uint8
}

// NewFieldCipher builds a FieldCipher over the key material's derived
// AES-256 key.
func NewFieldCipher(km *KeyMaterial) (*FieldCipher, error) {
	aead, err := newAEAD(km)
	if err != nil {
		return nil, err
	}
	return &FieldCipher{aead: aead, keyVersion: km.Version()}, nil
}

// Encrypt seals a single plaintext value into a StoredField with a fresh
// random nonce. The empty string returns the zero-length sentinel without
// invoking the cipher, so optional fields never produce cipher errors.
func (c *FieldCipher) Encrypt(plaintext string) (StoredField, error) {
	if plaintext == "" {
		return StoredField{}, nil
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: nonce generation failed: %v", ErrEncryptionFailed, err)
	}

	out := make([]byte, 0, storedFieldOverhead+len(plaintext)+c.aead.Overhead())
	out = append(out, storedFieldVersion, c.keyVersion)
	out = append(out, nonce...)
	out = c.aead.Seal(out, nonce, []byte(plaintext), fieldAAD(storedFieldVersion, c.keyVersion))

	return StoredField(out), nil
}

// Decrypt opens a StoredField back into plaintext. The zero-length sentinel
// maps to "". Anything else that cannot be authenticated and decrypted with
// the current key (wrong key, truncated framing, unknown version, flipped
// bits) fails with ErrDecryptionFailed; the failure is never conflated with
// "field was legitimately empty".
func (c *FieldCipher) Decrypt(field StoredField) (string, error) {
	if len(field) == 0 {
		return "", nil
	}
	if len(field) < storedFieldOverhead+c.aead.Overhead() {
		return "", fmt.Errorf("%w: stored field too short (%d bytes)", ErrDecryptionFailed, len(field))
	}
	if field[0] != storedFieldVersion {
		return "", fmt.Errorf("%w: unsupported stored field version %d", ErrDecryptionFailed, field[0])
	}
	if field[1] != c.keyVersion {
		return "", fmt.Errorf("%w: stored field key version %d does not match configured version %d",
			ErrDecryptionFailed, field[1], c.keyVersion)
	}

	nonce := field[2:storedFieldOverhead]
	sealed := field[storedFieldOverhead:]

	plaintext, err := c.aead.Open(nil, nonce, sealed, fieldAAD(field[0], field[1]))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

// fieldAAD binds the framing bytes into the GCM authentication tag so a
// tampered version or key-version byte fails authentication.
func fieldAAD(version, keyVersion byte) []byte {
	return []byte{version, keyVersion}
}

func newAEAD(km *KeyMaterial) (cipher.AEAD, error) {
	block, err := aes.NewCipher(km.encryptionKey[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}
