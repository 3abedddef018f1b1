// Package piivault is the PII protection layer for clinic patient records.
//
// Patient data (name, date of birth, phone, email, address, signature and
// selfie images) must never be persisted in cleartext, but registration still
// has to detect duplicate registrants by phone, email or name within a
// clinic. piivault resolves that tension by keeping two representations of
// every searchable sensitive value:
//
//   - A StoredField: authenticated AES-256-GCM ciphertext with a fresh random
//     nonce per write, so two encryptions of the same value never produce the
//     same bytes. Used to serve decrypted values back to authorized callers.
//   - A LookupKey: a deterministic HMAC-SHA256 of the normalized value, keyed
//     per field category (phone, email, name). Used only for equality probes
//     and duplicate detection, never decryptable.
//
// The building blocks compose bottom-up:
//
//   - NormalizePhone, NormalizeEmail, NormalizeName canonicalize raw input
//     before hashing so independent call sites produce bit-identical probes.
//   - FieldCipher encrypts and decrypts single text values.
//   - LookupHasher produces the purpose-keyed deterministic hashes.
//   - BlobCipher handles opaque binary payloads (images) with chunked
//     authenticated encryption.
//   - RecordCodec turns a plaintext RawRecord into a storage-ready
//     StoragePayload (ciphertext fields plus lookup keys) and back, driven by
//     a declared Schema.
//   - DuplicateDetector probes a RecordStore by hash, scoped to a clinic.
//   - BlobPipeline runs encrypt-then-put and get-then-decrypt against a
//     BlobStore.
//   - Registrar ties the create path together: pre-check, encode, insert,
//     and translation of the store's uniqueness violation into the same
//     conflict outcome as the pre-check.
//
// Key material is loaded once at startup into an immutable KeyMaterial value
// and injected into each component; there is no package-level singleton. The
// hashing keys are derived from the confidentiality key by HKDF with distinct
// info strings, so confidentiality and searchability never share a key.
//
// The duplicate pre-check is optimistic: two concurrent
// registrations for the same phone can both pass it. The authoritative
// guarantee is the store's uniqueness constraint on (clinic, field, hash);
// Registrar converts that constraint violation into ErrDuplicateRecord so
// callers see one conflict outcome either way.
//
// piivault is a library. HTTP routing, request validation, rate limiting and
// process wiring belong to the consuming service.
package piivault
