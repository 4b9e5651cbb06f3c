package snapsi_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sagarc03/snapsi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidObjectName(t *testing.T) {
	invalidUTF8 := string([]byte{'a', 0xff, 'b'})

	tt := []struct {
		Name  string
		Input string
		Want  bool
	}{
		{Name: "empty", Input: "", Want: false},
		{Name: "marker", Input: ".placeholder", Want: false},
		{Name: "temp file", Input: ".tabc123", Want: false},
		{Name: "parent", Input: "..", Want: false},
		{Name: "slash", Input: "a/b.png", Want: false},
		{Name: "backslash", Input: `a\b.png`, Want: false},
		{Name: "newline", Input: "a\nb.png", Want: false},
		{Name: "DEL", Input: "a\x7fb.png", Want: false},
		{Name: "invalid utf8", Input: invalidUTF8, Want: false},
		{Name: "too long", Input: strings.Repeat("a", 1025), Want: false},

		{Name: "simple", Input: "beach_1718000000123.png", Want: true},
		{Name: "spaces", Input: "my photo_1718000000123.png", Want: true},
		{Name: "inner dots", Input: "photo.JPG__1718000000123.png", Want: true},
		{Name: "unicode", Input: "café_1.webp", Want: true},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Want, snapsi.IsValidObjectName(tc.Input))
		})
	}
}

func TestIsImageKey(t *testing.T) {
	assert.False(t, snapsi.IsImageKey(snapsi.NamespaceMarker))
	assert.True(t, snapsi.IsImageKey("a_1.png"))
}

func TestParseFolderID(t *testing.T) {
	id := uuid.New()

	parsed, err := snapsi.ParseFolderID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	parsed, err = snapsi.ParseFolderID(strings.ToUpper(id.String()))
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = snapsi.ParseFolderID("../etc")
	assert.ErrorIs(t, err, snapsi.ErrInvalidInput)
}

func TestSplitObjectKey(t *testing.T) {
	id := uuid.New()

	gotID, name, err := snapsi.SplitObjectKey(id.String() + "/a_1.png")
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Equal(t, "a_1.png", name)

	for _, bad := range []string{
		"",
		"a_1.png",
		id.String(),
		id.String() + "/",
		id.String() + "/.placeholder",
		id.String() + "/x/y.png",
		strings.ToUpper(id.String()) + "/a_1.png",
		"not-a-uuid/a_1.png",
	} {
		_, _, err := snapsi.SplitObjectKey(bad)
		assert.ErrorIs(t, err, snapsi.ErrInvalidInput, bad)
	}
}
