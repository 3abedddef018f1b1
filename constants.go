package piivault

// Key material constraints
const (
	// MinMasterKeyLength is the minimum accepted length in bytes for the
	// confidentiality master key. Anything shorter is rejected at
	// construction time with ErrKeyTooShort, never at request time.
	MinMasterKeyLength = 32

	// derivedKeyLength is the length of every HKDF-derived key: the AES-256
	// encryption key and each purpose hash key.
	derivedKeyLength = 32
)

// Phone digit-count policy. Normalization itself never enforces this range;
// it is a caller-side validation concern exposed through ValidPhoneDigits.
const (
	MinPhoneDigits = 8
	MaxPhoneDigits = 15
)

// Environment variable names read by LoadConfigFromEnvironment.
const (
	// EnvMasterKey holds the confidentiality master key, base64 (std encoding).
	// Required. Must decode to at least MinMasterKeyLength bytes.
	EnvMasterKey = "PIIVAULT_MASTER_KEY"

	// EnvHashMasterKey optionally holds a separate master key for lookup-hash
	// derivation, base64. When unset, hash keys are derived from the
	// confidentiality master key with distinct HKDF info strings.
	EnvHashMasterKey = "PIIVAULT_HASH_MASTER_KEY"

	// EnvKeyVersion is the key-version tag stamped into every StoredField.
	// Optional, defaults to 1. Must be an integer in [1, 255].
	EnvKeyVersion = "PIIVAULT_KEY_VERSION"
)

// DefaultKeyVersion is used when no key version is configured. Version 0 is
// reserved as invalid so a zeroed tag is never mistaken for a real one.
const DefaultKeyVersion uint8 = 1

// Canonical field names used by the built-in patient schema and by
// DuplicateDetector probes. The record store indexes lookup keys under these
// names, so detector and codec must agree on them.
const (
	FieldFullName = "full_name"
	FieldPhone    = "phone"
	FieldEmail    = "email"
	FieldDOB      = "dob"
	FieldAddress  = "address"
)
