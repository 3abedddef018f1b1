package piivault

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HashPurpose identifies the field category a lookup hash belongs to. Each
// purpose gets its own HMAC key so hashes of the same value under different
// purposes never correlate.
type HashPurpose string

const (
	PurposePhone HashPurpose = "phone"
	PurposeEmail HashPurpose = "email"
	PurposeName  HashPurpose = "name"
)

// HKDF info strings. Distinct strings guarantee the derived keys are
// cryptographically separated even when hash keys are derived from the
// confidentiality master key.
const (
	infoFieldEncryption  = "piivault-field-encryption"
	infoLookupHashPrefix = "piivault-lookup-"
)

// KeyMaterial is the immutable set of derived keys every component is
// constructed with. It is built once at startup from Config, shared read-only
// across concurrent operations, and never mutated afterward; rotation swaps
// in a whole new KeyMaterial rather than touching this one.
type KeyMaterial struct {
	version       uint8
	encryptionKey [derivedKeyLength]byte
	hashKeys      map[HashPurpose][derivedKeyLength]byte
}

// NewKeyMaterial validates the configured master keys and derives the
// AES-256 encryption key plus one HMAC key per hash purpose using
// HKDF-SHA256. Missing or undersized key material is a fatal construction
// error, never a per-request one.
func NewKeyMaterial(cfg Config) (*KeyMaterial, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	km := &KeyMaterial{
		version:  cfg.KeyVersion,
		hashKeys: make(map[HashPurpose][derivedKeyLength]byte, 3),
	}

	if err := hkdfDerive(cfg.MasterKey, infoFieldEncryption, km.encryptionKey[:]); err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	// Hash keys come from the dedicated hash master key when one is
	// configured, otherwise from the confidentiality master key. The info
	// strings keep them distinct from the encryption key either way.
	hashMaster := cfg.HashMasterKey
	if len(hashMaster) == 0 {
		hashMaster = cfg.MasterKey
	}
	for _, purpose := range []HashPurpose{PurposePhone, PurposeEmail, PurposeName} {
		var key [derivedKeyLength]byte
		if err := hkdfDerive(hashMaster, infoLookupHashPrefix+string(purpose), key[:]); err != nil {
			return nil, fmt.Errorf("failed to derive %s hash key: %w", purpose, err)
		}
		km.hashKeys[purpose] = key
	}

	return km, nil
}

// Version returns the key-version tag stamped into every StoredField, the
// metadata a future rotation mechanism needs to pick the right key.
func (km *KeyMaterial) Version() uint8 {
	return km.version
}

func (km *KeyMaterial) hashKey(purpose HashPurpose) ([derivedKeyLength]byte, bool) {
	key, ok := km.hashKeys[purpose]
	return key, ok
}

// hkdfDerive fills out with HKDF-SHA256 keyed by master and the given info
// string. A nil salt means HKDF uses a zero-filled salt of hash length.
func hkdfDerive(master []byte, info string, out []byte) error {
	reader := hkdf.New(sha256.New, master, nil, []byte(info))
	_, err := io.ReadFull(reader, out)
	return err
}
