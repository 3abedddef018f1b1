package piivault

import "encoding/base64"

// TenantScope is the partition boundary within which uniqueness and search
// apply: the clinic identifier. The same phone number may exist once per
// clinic without collision.
type TenantScope string

// StoredField is the persisted form of one sensitive value: a format version
// byte, a key-version tag, the GCM nonce and the sealed ciphertext. Produced
// fresh on every write; two encryptions of the same plaintext never yield the
// same bytes, since deterministic ciphertext would leak equality.
//
// A zero-length StoredField is the sentinel for a legitimately empty value
// and decrypts to "" without invoking the cipher.
type StoredField []byte

// KeyVersion returns the key-version tag carried in the framing, or 0 for
// the empty sentinel and for fields too short to carry one.
func (f StoredField) KeyVersion() uint8 {
	if len(f) < 2 {
		return 0
	}
	return f[1]
}

// EncodeToString renders the field as standard base64 for text columns.
func (f StoredField) EncodeToString() string {
	return base64.StdEncoding.EncodeToString(f)
}

// ParseStoredField decodes the base64 form produced by EncodeToString.
func ParseStoredField(s string) (StoredField, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return StoredField(b), nil
}

// LookupKey is the deterministic keyed hash of one normalized field value,
// stored alongside the ciphertext but never derivable from it without the
// key material. It exists only to make encrypted fields searchable for
// equality; it carries no confidentiality duty.
type LookupKey struct {
	FieldName string `json:"field_name"`
	Hash      []byte `json:"hash"`
}

// RawRecord is the plaintext side of the codec: sensitive values by field
// name plus non-sensitive attributes that pass through unchanged.
type RawRecord struct {
	Tenant     TenantScope
	ID         string
	Fields     map[string]string
	Attributes map[string]string
}

// StoragePayload is the storage-ready side: every sensitive field as a
// StoredField, lookup keys for the hashed subset, attributes untouched.
type StoragePayload struct {
	Tenant     TenantScope            `json:"tenant"`
	ID         string                 `json:"id"`
	Fields     map[string]StoredField `json:"fields"`
	LookupKeys []LookupKey            `json:"lookup_keys"`
	Attributes map[string]string      `json:"attributes"`
}
