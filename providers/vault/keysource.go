// Package vault loads piivault key material from HashiCorp Vault KV v2.
//
// Keys are stored base64-encoded under a "value" entry, one secret per key:
//
//	secret/data/piivault/{alias}/master-key
//	secret/data/piivault/{alias}/hash-master-key   (optional)
//
// The KV v2 engine must be enabled before use:
//
//	vault secrets enable -path=secret kv-v2
package vault

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/hashicorp/vault/api"

	"github.com/hengadev/piivault"
)

const (
	masterKeyPathTemplate     = "piivault/%s/master-key"
	hashMasterKeyPathTemplate = "piivault/%s/hash-master-key"

	kvMount = "secret"
)

// KeySource fetches master keys from Vault at process start. The fetched
// bytes feed piivault.NewKeyMaterial; nothing is cached here, so swapping
// key material on rotation means building a fresh Config from a fresh read.
type KeySource struct {
	client *api.Client
	alias  string
}

// NewKeySource creates a KeySource for the given service alias using
// environment configuration (VAULT_ADDR and VAULT_TOKEN).
func NewKeySource(alias string) (*KeySource, error) {
	if alias == "" {
		return nil, fmt.Errorf("%w: alias is required", piivault.ErrInvalidConfiguration)
	}

	config := api.DefaultConfig()
	if addr := os.Getenv("VAULT_ADDR"); addr != "" {
		config.Address = addr
	}
	if config.Address == "" {
		return nil, fmt.Errorf("%w: VAULT_ADDR environment variable is required", piivault.ErrInvalidConfiguration)
	}
	config.HttpClient.Transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("creating Vault client: %w", err)
	}
	if token := os.Getenv("VAULT_TOKEN"); token != "" {
		client.SetToken(token)
	}

	return &KeySource{client: client, alias: alias}, nil
}

// LoadConfig reads the master key (required) and hash master key (optional)
// for the alias and returns a validated piivault.Config.
func (k *KeySource) LoadConfig(ctx context.Context) (piivault.Config, error) {
	masterKey, err := k.readKey(ctx, fmt.Sprintf(masterKeyPathTemplate, k.alias))
	if err != nil {
		return piivault.Config{}, err
	}

	cfg := piivault.Config{MasterKey: masterKey}

	hashKey, err := k.readKey(ctx, fmt.Sprintf(hashMasterKeyPathTemplate, k.alias))
	if err != nil && !errors.Is(err, piivault.ErrKeyMissing) {
		return piivault.Config{}, err
	}
	cfg.HashMasterKey = hashKey

	if err := cfg.Validate(); err != nil {
		return piivault.Config{}, err
	}
	return cfg, nil
}

// readKey reads one base64-encoded key from KV v2. A missing secret maps to
// piivault.ErrKeyMissing so required and optional keys can share this path.
func (k *KeySource) readKey(ctx context.Context, path string) ([]byte, error) {
	secret, err := k.client.KVv2(kvMount).Get(ctx, path)
	if err != nil {
		if errors.Is(err, api.ErrSecretNotFound) {
			return nil, fmt.Errorf("%w: no secret at '%s/%s'", piivault.ErrKeyMissing, kvMount, path)
		}
		return nil, fmt.Errorf("reading key from Vault at '%s': %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: no secret at '%s/%s'", piivault.ErrKeyMissing, kvMount, path)
	}

	valueB64, ok := secret.Data["value"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: secret at '%s' has no string 'value' entry", piivault.ErrInvalidConfiguration, path)
	}
	key, err := base64.StdEncoding.DecodeString(valueB64)
	if err != nil {
		return nil, fmt.Errorf("%w: key at '%s' is not valid base64: %v", piivault.ErrInvalidConfiguration, path, err)
	}
	return key, nil
}
