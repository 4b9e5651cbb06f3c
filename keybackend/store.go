package keybackend

import (
	"fmt"
)

// KeysConfig holds configuration for loading signing keys.
//
// Every configured key is accepted when verifying, while new URLs are signed
// with the Active key only. This allows rotating keys without invalidating
// URLs that are still in flight.
type KeysConfig struct {
	Inline []KeyPair `mapstructure:"inline" yaml:"inline"` // Inline key pairs from config
	File   string    `mapstructure:"file" yaml:"file"`     // Path to JSON or YAML file containing key pairs
	Active string    `mapstructure:"active" yaml:"active"` // Access key used for signing
}

// NewSecretStore creates a MapSecretStore from the given configuration.
// It loads keys from both inline config and file (if specified),
// merging them into a single store. File keys take precedence over inline keys
// if there are duplicates.
func NewSecretStore(cfg KeysConfig) (*MapSecretStore, error) {
	keys := make(map[string]string)

	for _, p := range cfg.Inline {
		if p.AccessKey != "" && p.SecretKey != "" {
			keys[p.AccessKey] = p.SecretKey
		}
	}

	if cfg.File != "" {
		fileKeys, err := LoadKeysFromFile(cfg.File)
		if err != nil {
			return nil, err
		}
		for k, v := range fileKeys {
			keys[k] = v
		}
	}

	return NewMapSecretStore(keys), nil
}

// SigningKey picks the pair used to sign new URLs: the Active key when set,
// otherwise the only configured key.
func SigningKey(cfg KeysConfig, store *MapSecretStore) (KeyPair, error) {
	if cfg.Active != "" {
		pair, err := store.Pair(cfg.Active)
		if err != nil {
			return KeyPair{}, fmt.Errorf("signing key: %w", err)
		}
		return pair, nil
	}

	switch store.Len() {
	case 0:
		return KeyPair{}, fmt.Errorf("signing key: %w", ErrNoKeys)
	case 1:
		for k, v := range store.keys {
			return KeyPair{AccessKey: k, SecretKey: v}, nil
		}
	}

	return KeyPair{}, fmt.Errorf("signing key: active key must be set when %d keys are configured", store.Len())
}
