package snapsi

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a folder or image does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrFileTooLarge is returned when an upload exceeds the configured size limit
	ErrFileTooLarge = fmt.Errorf("%w: file too large", ErrInvalidInput)
	// ErrForbidden is returned when a folder password is missing or wrong
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized is returned when a capability URL signature does not verify
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited is returned when a client exceeded its request budget for the window
	ErrRateLimited = errors.New("rate limited")
	// ErrQuotaExceeded is returned when a folder already holds the maximum number of images
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrAlreadyExists is returned when an upload targets a key that is already stored
	ErrAlreadyExists = errors.New("already exists")
	// ErrStorage is returned when the object store fails
	ErrStorage = errors.New("storage error")
	// ErrMetadata is returned when the folder metadata store fails
	ErrMetadata = errors.New("metadata error")
)

// storageError translates an object store failure into the service taxonomy.
// Not-found and already-exists keep their meaning; everything else becomes
// ErrStorage with the original error kept only as text.
func storageError(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, ErrAlreadyExists):
		return fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	case errors.Is(err, ErrFileTooLarge):
		return fmt.Errorf("%s: %w", op, ErrFileTooLarge)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStorage, err)
}

// metadataError does the same for the folder metadata store.
func metadataError(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrMetadata, err)
}
