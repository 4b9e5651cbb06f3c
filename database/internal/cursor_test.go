package internal_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/sagarc03/snapsi/database/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCursor_DecodeCursor_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		createdAt time.Time
		id        string
	}{
		{
			name:      "uuid id",
			createdAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
			id:        "0b6f3e4a-7a52-4f0e-9c55-5b8f2b9d7f10",
		},
		{
			name:      "nanosecond precision",
			createdAt: time.Date(2024, 12, 31, 23, 59, 59, 999999999, time.UTC),
			id:        "a3c1d2e4-0000-4000-8000-000000000001",
		},
		{
			name:      "non utc input",
			createdAt: time.Date(2024, 3, 10, 8, 0, 0, 0, time.FixedZone("IST", 19800)),
			id:        "f00dfeed-0000-4000-8000-000000000002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			encoded := internal.EncodeCursor(tt.createdAt, tt.id)
			assert.NotEmpty(t, encoded, "encoded cursor should not be empty")

			decoded, err := internal.DecodeCursor(encoded)
			require.NoError(t, err)

			assert.True(t, tt.createdAt.Equal(decoded.CreatedAt),
				"createdAt mismatch: expected %v, got %v", tt.createdAt, decoded.CreatedAt)
			assert.Equal(t, tt.id, decoded.ID)
		})
	}
}

func TestDecodeCursor_EmptyString(t *testing.T) {
	t.Parallel()

	cursor, err := internal.DecodeCursor("")
	require.NoError(t, err)

	assert.True(t, cursor.CreatedAt.IsZero(), "empty cursor should return zero time")
	assert.Empty(t, cursor.ID, "empty cursor should return empty id")
}

func TestDecodeCursor_InvalidBase64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cursor string
	}{
		{
			name:   "not base64",
			cursor: "not-valid-base64!!!",
		},
		{
			name:   "wrong padding",
			cursor: "aGVsbG8===",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := internal.DecodeCursor(tt.cursor)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "invalid encoding")
		})
	}
}

func TestDecodeCursor_InvalidFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		rawData     string
		errContains string
	}{
		{
			name:        "missing pipe separator",
			rawData:     "2024-01-15T10:30:00Z",
			errContains: "invalid format",
		},
		{
			name:        "empty id after pipe",
			rawData:     "2024-01-15T10:30:00Z|",
			errContains: "empty id",
		},
		{
			name:        "invalid timestamp format",
			rawData:     "not-a-timestamp|file.txt",
			errContains: "invalid timestamp",
		},
		{
			name:        "wrong timestamp format",
			rawData:     "2024/01/15 10:30:00|file.txt",
			errContains: "invalid timestamp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			encoded := base64.URLEncoding.EncodeToString([]byte(tt.rawData))

			_, err := internal.DecodeCursor(encoded)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}
