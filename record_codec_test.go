package piivault_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/piivault"
)

func newTestCodec(t *testing.T) *piivault.RecordCodec {
	t.Helper()
	km, err := piivault.NewTestKeyMaterial()
	require.NoError(t, err)
	codec, err := piivault.NewRecordCodec(km, piivault.PatientSchema())
	require.NoError(t, err)
	return codec
}

func patientRecord() piivault.RawRecord {
	return piivault.RawRecord{
		Tenant: "clinic-a",
		ID:     "patient-1",
		Fields: map[string]string{
			piivault.FieldFullName: "John Doe",
			piivault.FieldPhone:    "+65 9123-4567",
			piivault.FieldEmail:    "John.Doe@Example.com",
			piivault.FieldDOB:      "1990-04-01",
			piivault.FieldAddress:  "1 Clinic Road, #02-03",
		},
		Attributes: map[string]string{
			"status":     "active",
			"created_at": "2026-08-31T10:00:00Z",
		},
	}
}

func TestRecordCodecRoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	raw := patientRecord()

	payload, err := codec.Encode(raw)
	require.NoError(t, err)

	// Every sensitive field is ciphertext, never plaintext.
	for name, stored := range payload.Fields {
		assert.NotEqual(t, raw.Fields[name], string(stored), "field %s leaked plaintext", name)
	}
	assert.Len(t, payload.Fields, 5)

	// Hashed fields get lookup keys; dob and address do not.
	hashedFields := make(map[string]bool)
	for _, lk := range payload.LookupKeys {
		hashedFields[lk.FieldName] = true
		assert.Len(t, lk.Hash, 32)
	}
	assert.Equal(t, map[string]bool{
		piivault.FieldFullName: true,
		piivault.FieldPhone:    true,
		piivault.FieldEmail:    true,
	}, hashedFields)

	// Non-sensitive attributes pass through unchanged.
	assert.Equal(t, raw.Attributes, payload.Attributes)

	decoded, err := codec.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, raw.Fields, decoded.Fields)
	assert.Equal(t, raw.Attributes, decoded.Attributes)
	assert.Equal(t, raw.Tenant, decoded.Tenant)
	assert.Equal(t, raw.ID, decoded.ID)
}

func TestRecordCodecMissingOptionalFields(t *testing.T) {
	codec := newTestCodec(t)

	raw := piivault.RawRecord{
		Tenant: "clinic-a",
		ID:     "patient-2",
		Fields: map[string]string{
			piivault.FieldFullName: "Jane Doe",
			piivault.FieldPhone:    "6598765432",
			// no email, dob, address
		},
	}

	payload, err := codec.Encode(raw)
	require.NoError(t, err)

	// Absent values must not produce lookup keys: two patients without an
	// email are not duplicates of each other.
	for _, lk := range payload.LookupKeys {
		assert.NotEqual(t, piivault.FieldEmail, lk.FieldName)
	}
	assert.Len(t, payload.LookupKeys, 2)

	// Absent sensitive fields encode as the empty sentinel and decode back
	// to the empty string.
	assert.Empty(t, payload.Fields[piivault.FieldEmail])

	decoded, err := codec.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, "", decoded.Fields[piivault.FieldEmail])
	assert.Equal(t, "Jane Doe", decoded.Fields[piivault.FieldFullName])
}

func TestRecordCodecHashConsistentWithHasher(t *testing.T) {
	km, err := piivault.NewTestKeyMaterial()
	require.NoError(t, err)
	codec, err := piivault.NewRecordCodec(km, piivault.PatientSchema())
	require.NoError(t, err)
	hasher := piivault.NewLookupHasher(km)

	payload, err := codec.Encode(patientRecord())
	require.NoError(t, err)

	expected, err := hasher.Hash(piivault.PurposePhone, "+65 9123-4567")
	require.NoError(t, err)

	var phoneHash []byte
	for _, lk := range payload.LookupKeys {
		if lk.FieldName == piivault.FieldPhone {
			phoneHash = lk.Hash
		}
	}
	assert.Equal(t, expected, phoneHash, "codec and standalone hasher must produce identical probe keys")
}

func TestRecordCodecDecodeFailureNamesField(t *testing.T) {
	codec := newTestCodec(t)

	payload, err := codec.Encode(patientRecord())
	require.NoError(t, err)

	// Corrupt one field's ciphertext.
	mangled := append(piivault.StoredField(nil), payload.Fields[piivault.FieldEmail]...)
	mangled[len(mangled)-1] ^= 0x01
	payload.Fields[piivault.FieldEmail] = mangled

	decoded, err := codec.Decode(payload)
	require.Error(t, err)

	var decodeErr *piivault.RecordDecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, piivault.FieldEmail, decodeErr.Field)
	assert.True(t, piivault.IsDecryptionError(err), "decode error must unwrap to the decryption failure")

	// Partial decode is never returned.
	assert.Empty(t, decoded.Fields)
}

func TestRecordCodecDecodeWrongKeyMaterial(t *testing.T) {
	codec := newTestCodec(t)
	payload, err := codec.Encode(patientRecord())
	require.NoError(t, err)

	otherKM, err := piivault.NewKeyMaterial(piivault.Config{
		MasterKey: bytes.Repeat([]byte{0x07}, piivault.MinMasterKeyLength),
	})
	require.NoError(t, err)
	otherCodec, err := piivault.NewRecordCodec(otherKM, piivault.PatientSchema())
	require.NoError(t, err)

	_, err = otherCodec.Decode(payload)
	var decodeErr *piivault.RecordDecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.True(t, piivault.IsDecryptionError(err))
}

func TestRecordCodecRejectsInvalidSchema(t *testing.T) {
	km, err := piivault.NewTestKeyMaterial()
	require.NoError(t, err)

	_, err = piivault.NewRecordCodec(km, piivault.Schema{
		Entity: "broken",
		Fields: []piivault.FieldSpec{
			{Name: "phone", Sensitive: false, Hashed: true, Purpose: piivault.PurposePhone},
		},
	})
	assert.True(t, piivault.IsConfigurationError(err), "hashed non-sensitive field must be rejected, got %v", err)
}
