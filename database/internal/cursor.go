// Package internal holds helpers shared by the SQL folder repositories.
package internal

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Cursor is the keyset position of a folder listing: the last row's
// creation time and id.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// EncodeCursor encodes cursor data to a base64 string for pagination.
func EncodeCursor(createdAt time.Time, id string) string {
	data := createdAt.UTC().Format(time.RFC3339Nano) + "|" + id
	return base64.URLEncoding.EncodeToString([]byte(data))
}

// DecodeCursor decodes a pagination cursor string back to cursor data.
// An empty string is the start of the listing.
func DecodeCursor(cursor string) (Cursor, error) {
	if cursor == "" {
		return Cursor{}, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: invalid encoding: %w", err)
	}

	ts, id, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return Cursor{}, errors.New("decode cursor: invalid format")
	}

	if id == "" {
		return Cursor{}, errors.New("decode cursor: empty id")
	}

	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: invalid timestamp: %w", err)
	}

	return Cursor{CreatedAt: createdAt, ID: id}, nil
}
