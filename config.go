package piivault

// Config holds the key material handed to NewKeyMaterial.
//
// This struct contains only data, no behavior. It can be populated from any
// source (environment variables, Vault, code) and passed explicitly; see
// LoadConfigFromEnvironment and providers/vault for the usual sources.
//
// Required fields:
//   - MasterKey: the confidentiality master key, at least MinMasterKeyLength bytes
//
// Optional fields:
//   - HashMasterKey: separate master key for lookup-hash derivation. When
//     empty, hash keys are derived from MasterKey with distinct HKDF info
//     strings, which still guarantees they never equal the encryption key.
//   - KeyVersion: tag stamped into every StoredField (default: DefaultKeyVersion)
type Config struct {
	// MasterKey is the confidentiality master key. The AES-256 field and
	// blob encryption key is derived from it, never used raw.
	MasterKey []byte

	// HashMasterKey optionally separates the hashing key hierarchy from the
	// confidentiality one, e.g. when the two are held by different owners.
	// Subject to the same minimum length as MasterKey when set.
	HashMasterKey []byte

	// KeyVersion identifies this key generation in persisted ciphertext.
	// Must not be zero after Validate; zero is reserved as invalid.
	KeyVersion uint8
}

// Validate checks key lengths and applies the default key version. Returns
// an error satisfying IsConfigurationError when the material is unusable.
func (c *Config) Validate() error {
	if len(c.MasterKey) == 0 {
		return NewKeyMissingError("MasterKey")
	}
	if len(c.MasterKey) < MinMasterKeyLength {
		return NewKeyTooShortError("MasterKey", MinMasterKeyLength, len(c.MasterKey))
	}
	if len(c.HashMasterKey) > 0 && len(c.HashMasterKey) < MinMasterKeyLength {
		return NewKeyTooShortError("HashMasterKey", MinMasterKeyLength, len(c.HashMasterKey))
	}
	if c.KeyVersion == 0 {
		c.KeyVersion = DefaultKeyVersion
	}
	return nil
}
