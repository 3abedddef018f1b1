package piivault

import (
	"fmt"

	"github.com/hengadev/errsx"
)

// RecordCodec composes FieldCipher and LookupHasher into a schema-driven
// transform between plaintext RawRecords and storage-ready StoragePayloads.
// Pure transform layer: no I/O, safe for concurrent use.
type RecordCodec struct {
	schema Schema
	cipher *FieldCipher
	hasher *LookupHasher
}

// NewRecordCodec validates the schema and wires the cipher and hasher over
// the shared key material.
func NewRecordCodec(km *KeyMaterial, schema Schema) (*RecordCodec, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	cipher, err := NewFieldCipher(km)
	if err != nil {
		return nil, err
	}
	return &RecordCodec{
		schema: schema,
		cipher: cipher,
		hasher: NewLookupHasher(km),
	}, nil
}

// Schema returns the schema this codec encodes against.
func (c *RecordCodec) Schema() Schema {
	return c.schema
}

// Encode turns a plaintext record into its storage payload. For every
// sensitive schema field the value is encrypted into a StoredField; hashed
// fields additionally get a LookupKey over the normalized value. Fields the
// raw record does not carry encode as the empty sentinel. Non-sensitive
// schema fields and all attributes pass through as plaintext. Failures
// across fields are aggregated rather than stopping at the first.
func (c *RecordCodec) Encode(raw RawRecord) (*StoragePayload, error) {
	payload := &StoragePayload{
		Tenant:     raw.Tenant,
		ID:         raw.ID,
		Fields:     make(map[string]StoredField, len(c.schema.Fields)),
		Attributes: make(map[string]string, len(raw.Attributes)),
	}
	for name, value := range raw.Attributes {
		payload.Attributes[name] = value
	}

	errs := make(errsx.Map)
	for _, spec := range c.schema.Fields {
		value := raw.Fields[spec.Name]

		if !spec.Sensitive {
			if value != "" {
				payload.Attributes[spec.Name] = value
			}
			continue
		}

		encrypted, err := c.cipher.Encrypt(value)
		if err != nil {
			errs.Set(fmt.Sprintf("encrypt '%s'", spec.Name), err)
			continue
		}
		payload.Fields[spec.Name] = encrypted

		// Empty values produce no lookup key: an absent phone must not
		// collide with every other absent phone in the clinic.
		if spec.Hashed && value != "" {
			hash, err := c.hasher.Hash(spec.Purpose, value)
			if err != nil {
				errs.Set(fmt.Sprintf("hash '%s'", spec.Name), err)
				continue
			}
			payload.LookupKeys = append(payload.LookupKeys, LookupKey{
				FieldName: spec.Name,
				Hash:      hash,
			})
		}
	}

	if err := errs.AsError(); err != nil {
		return nil, fmt.Errorf("encoding %s record: %w", c.schema.Entity, err)
	}
	return payload, nil
}

// Decode is the inverse transform: every StoredField is decrypted back to
// plaintext. If any field fails to decrypt the whole decode fails with a
// *RecordDecodeError naming that field; a half-decrypted record is worse
// than no record for a caller that does not check per-field status.
func (c *RecordCodec) Decode(payload *StoragePayload) (RawRecord, error) {
	raw := RawRecord{
		Tenant:     payload.Tenant,
		ID:         payload.ID,
		Fields:     make(map[string]string, len(payload.Fields)),
		Attributes: make(map[string]string, len(payload.Attributes)),
	}
	for name, value := range payload.Attributes {
		raw.Attributes[name] = value
	}

	for _, spec := range c.schema.Fields {
		if !spec.Sensitive {
			continue
		}
		encrypted, ok := payload.Fields[spec.Name]
		if !ok {
			continue
		}
		plaintext, err := c.cipher.Decrypt(encrypted)
		if err != nil {
			return RawRecord{}, &RecordDecodeError{Field: spec.Name, Err: err}
		}
		raw.Fields[spec.Name] = plaintext
	}

	return raw, nil
}
