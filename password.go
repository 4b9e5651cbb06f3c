package snapsi

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores everything past 72 bytes and GenerateFromPassword rejects longer input.
const maxPasswordLength = 72

// HashPassword returns the stored form of a folder password. An empty
// password yields an empty hash, which marks the folder as public.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	if len(password) > maxPasswordLength {
		return "", fmt.Errorf("hash password: %w: password longer than %d bytes", ErrInvalidInput, maxPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether supplied unlocks a folder with the given hash.
// Folders without a password accept anything.
func CheckPassword(hash, supplied string) (bool, error) {
	if hash == "" {
		return true, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(supplied))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check password: %w", err)
	}
	return true, nil
}
