package keybackend

import "errors"

var (
	ErrKeyNotFound = errors.New("access key not found")
	ErrNoKeys      = errors.New("no signing keys configured")
)
