package piivault

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadConfigFromEnvironment reads key material from environment variables
// and returns a validated Config. A .env file in the working directory is
// loaded first when present (development convenience); real variables win.
//
// Required:
//   - PIIVAULT_MASTER_KEY: base64-encoded confidentiality master key
//
// Optional:
//   - PIIVAULT_HASH_MASTER_KEY: base64-encoded hash master key
//   - PIIVAULT_KEY_VERSION: integer in [1, 255], default 1
//
// Returns an error satisfying IsConfigurationError if required variables are
// missing, malformed, or fail validation.
func LoadConfigFromEnvironment() (Config, error) {
	_ = godotenv.Load()

	masterB64 := os.Getenv(EnvMasterKey)
	if masterB64 == "" {
		return Config{}, fmt.Errorf("%w: %s environment variable is required", ErrKeyMissing, EnvMasterKey)
	}
	masterKey, err := base64.StdEncoding.DecodeString(masterB64)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s is not valid base64: %v", ErrInvalidConfiguration, EnvMasterKey, err)
	}

	cfg := Config{MasterKey: masterKey}

	if hashB64 := os.Getenv(EnvHashMasterKey); hashB64 != "" {
		cfg.HashMasterKey, err = base64.StdEncoding.DecodeString(hashB64)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s is not valid base64: %v", ErrInvalidConfiguration, EnvHashMasterKey, err)
		}
	}

	if versionStr := os.Getenv(EnvKeyVersion); versionStr != "" {
		version, err := strconv.ParseUint(versionStr, 10, 8)
		if err != nil || version == 0 {
			return Config{}, fmt.Errorf("%w: %s must be an integer in [1, 255], got %q", ErrInvalidConfiguration, EnvKeyVersion, versionStr)
		}
		cfg.KeyVersion = uint8(version)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
