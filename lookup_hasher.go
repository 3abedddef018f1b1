package piivault

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
)

// LookupHasher produces the deterministic keyed hashes that make encrypted
// fields searchable for equality. It is used only for lookup, never for
// confidentiality: same normalized input plus same purpose always yields the
// same output, which is exactly the property FieldCipher must not have.
//
// Each purpose (phone, email, name) hashes under its own HKDF-derived key,
// so the hash of a value under one purpose never correlates with its hash
// under another, and none of them share a key with the cipher.
type LookupHasher struct {
	keys map[HashPurpose][derivedKeyLength]byte
}

func NewLookupHasher(km *KeyMaterial) *LookupHasher {
	keys := make(map[HashPurpose][derivedKeyLength]byte, len(km.hashKeys))
	for purpose, key := range km.hashKeys {
		keys[purpose] = key
	}
	return &LookupHasher{keys: keys}
}

// Hash normalizes the raw value with the purpose's canonical rule and
// returns its HMAC-SHA256 under the purpose key. Pure: no I/O, no
// randomness.
func (h *LookupHasher) Hash(purpose HashPurpose, raw string) ([]byte, error) {
	normalize, err := normalizerFor(purpose)
	if err != nil {
		return nil, err
	}
	return h.HashNormalized(purpose, normalize(raw))
}

// HashNormalized hashes a value the caller has already normalized. Both
// write and probe sites must agree on the normalization for the resulting
// hashes to match; prefer Hash unless the normalized form is needed anyway.
func (h *LookupHasher) HashNormalized(purpose HashPurpose, normalized string) ([]byte, error) {
	key, ok := h.keys[purpose]
	if !ok {
		return nil, fmt.Errorf("%w: no hash key for purpose '%s'", ErrInvalidConfiguration, purpose)
	}
	mac := hmac.New(sha256.New, key[:])
	mac.Write([]byte(normalized))
	return mac.Sum(nil), nil
}

// normalizerFor returns the canonical normalization rule for a purpose.
func normalizerFor(purpose HashPurpose) (Normalizer, error) {
	switch purpose {
	case PurposePhone:
		return NormalizePhone, nil
	case PurposeEmail:
		return NormalizeEmail, nil
	case PurposeName:
		return NormalizeName, nil
	default:
		return nil, fmt.Errorf("%w: unknown hash purpose '%s'", ErrInvalidConfiguration, purpose)
	}
}
