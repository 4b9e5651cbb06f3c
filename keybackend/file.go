package keybackend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeyPair is one signing credential.
type KeyPair struct {
	AccessKey string `json:"access_key" yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key" mapstructure:"secret_key"`
}

// LoadKeysFromFile reads a list of key pairs from a JSON file, or from YAML
// when the file ends in .yaml or .yml. Pairs with an empty half are skipped.
func LoadKeysFromFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted config file
	if err != nil {
		return nil, fmt.Errorf("read keys file: %w", err)
	}

	var pairs []KeyPair
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &pairs)
	default:
		err = json.Unmarshal(data, &pairs)
	}
	if err != nil {
		return nil, fmt.Errorf("parse keys file: %w", err)
	}

	keys := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if p.AccessKey != "" && p.SecretKey != "" {
			keys[p.AccessKey] = p.SecretKey
		}
	}

	return keys, nil
}
