package snapsi

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// NamespaceMarker is the object that makes a folder's prefix exist in the store.
// It is never listed or counted.
const NamespaceMarker = ".placeholder"

// ParseFolderID parses a client supplied folder id.
func ParseFolderID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse folder id: %w: %q", ErrInvalidInput, id)
	}
	return parsed, nil
}

// IsValidObjectName checks a single object name inside a folder, as produced
// by SanitizeFilename plus a timestamp suffix.
// It checks that the name:
//   - is not empty and at most 1024 bytes
//   - does not contain "/" or "\"
//   - does not start with "." (markers, temp files, traversal)
//   - is valid UTF-8 without control characters
func IsValidObjectName(name string) bool {
	if name == "" || len(name) > 1024 {
		return false
	}

	if strings.HasPrefix(name, ".") {
		return false
	}

	if strings.ContainsAny(name, `/\`) {
		return false
	}

	if !utf8.ValidString(name) {
		return false
	}

	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}

	return true
}

// SplitObjectKey splits "{folderID}/{name}" and validates both parts.
func SplitObjectKey(key string) (uuid.UUID, string, error) {
	folder, name, ok := strings.Cut(key, "/")
	if !ok {
		return uuid.Nil, "", fmt.Errorf("split object key: %w: %q", ErrInvalidInput, key)
	}

	id, err := ParseFolderID(folder)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("split object key: %w", err)
	}

	// canonical form only, so one object has exactly one key
	if id.String() != folder || !IsValidObjectName(name) {
		return uuid.Nil, "", fmt.Errorf("split object key: %w: %q", ErrInvalidInput, key)
	}

	return id, name, nil
}

// IsImageKey reports whether a key listed under a folder prefix is a real image.
func IsImageKey(name string) bool {
	return name != NamespaceMarker && IsValidObjectName(name)
}
