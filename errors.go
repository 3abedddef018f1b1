package piivault

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors (fatal at construction, the process must not
	// serve requests with bad key material)
	ErrKeyMissing           = errors.New("key material missing")
	ErrKeyTooShort          = errors.New("key material too short")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidSchema        = errors.New("invalid record schema")

	// Cryptographic operation errors
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")

	// Store outcome errors
	ErrNotFound        = errors.New("not found")
	ErrDuplicateRecord = errors.New("duplicate record")
)

// RecordDecodeError wraps the first field-level decryption failure hit while
// decoding a composite record. A half-decrypted record is never returned;
// callers get this error and the name of the field that failed.
type RecordDecodeError struct {
	Field string
	Err   error
}

func (e *RecordDecodeError) Error() string {
	return fmt.Sprintf("record decode failed: field '%s': %v", e.Field, e.Err)
}

func (e *RecordDecodeError) Unwrap() error {
	return e.Err
}

func NewKeyTooShortError(name string, min, got int) error {
	return fmt.Errorf("%w: %s must be at least %d bytes, got %d", ErrKeyTooShort, name, min, got)
}

func NewKeyMissingError(name string) error {
	return fmt.Errorf("%w: %s is required", ErrKeyMissing, name)
}

func NewDuplicateRecordError(tenant TenantScope, fieldName string) error {
	return fmt.Errorf("%w: %s already registered in clinic '%s'", ErrDuplicateRecord, fieldName, tenant)
}

// IsConfigurationError returns true if the error represents bad key material
// or an otherwise unusable configuration. These are startup-time failures.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrKeyMissing) ||
		errors.Is(err, ErrKeyTooShort) ||
		errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrInvalidSchema)
}

// IsDecryptionError returns true if a ciphertext could not be authenticated
// or decrypted. Retrying with the same key and ciphertext cannot succeed, so
// callers must surface the failure rather than retry or default to "".
func IsDecryptionError(err error) bool {
	return errors.Is(err, ErrDecryptionFailed)
}

// IsNotFound returns true if the requested record or blob does not exist.
// Distinct from IsDecryptionError: "file missing" is not "file unreadable".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if an existing record matched a candidate value,
// whether detected by the optimistic pre-check or by the store's uniqueness
// constraint. Recoverable and user-correctable, not a system fault.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateRecord)
}
