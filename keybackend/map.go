// Package keybackend loads the HMAC keys used to sign and verify capability URLs.
package keybackend

import (
	"fmt"
)

// MapSecretStore retrieves keys from an in-memory map.
// Suitable for configuration file-based key storage.
type MapSecretStore struct {
	keys map[string]string
}

// NewMapSecretStore creates a new map-based secret store with the given access key to secret key mapping.
func NewMapSecretStore(keys map[string]string) *MapSecretStore {
	return &MapSecretStore{keys: keys}
}

// Lookup retrieves the secret key for the given access key from the map.
func (s *MapSecretStore) Lookup(accessKey string) (string, error) {
	secretKey, found := s.keys[accessKey]
	if !found {
		return "", fmt.Errorf("lookup %q: %w", accessKey, ErrKeyNotFound)
	}
	return secretKey, nil
}

func (s *MapSecretStore) Len() int {
	return len(s.keys)
}

// Pair returns the full key pair for an access key.
func (s *MapSecretStore) Pair(accessKey string) (KeyPair, error) {
	secretKey, err := s.Lookup(accessKey)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{AccessKey: accessKey, SecretKey: secretKey}, nil
}
