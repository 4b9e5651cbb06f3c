package snapsi_test

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/sagarc03/snapsi"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	long := strings.Repeat("a", 120)

	tt := []struct {
		Name string
		Raw  string
		Want string
	}{
		{Name: "plain name unchanged", Raw: "beach.png", Want: "beach.png"},
		{Name: "question mark replaced", Raw: "photo.JPG?.png", Want: "photo.JPG_.png"},
		{Name: "path separators replaced", Raw: "../../etc/passwd", Want: "_.._etc_passwd"},
		{Name: "windows separators replaced", Raw: `C:\Users\me\cat.gif`, Want: "C__Users_me_cat.gif"},
		{Name: "all unsafe characters", Raw: `a/b\c?d%e*f:g|h"i<j>k.png`, Want: "a_b_c_d_e_f_g_h_i_j_k.png"},
		{Name: "leading dots stripped", Raw: "...hidden.png", Want: "hidden.png"},
		{Name: "trailing dots stripped", Raw: "image.png...", Want: "image.png"},
		{Name: "only dots becomes empty", Raw: "....", Want: ""},
		{Name: "control characters replaced", Raw: "a\x00b\nc.png", Want: "a_b_c.png"},
		{Name: "spaces kept", Raw: "my photo.png", Want: "my photo.png"},
		{Name: "unicode kept", Raw: "café.webp", Want: "café.webp"},
		{Name: "long name keeps extension", Raw: long + ".jpeg", Want: strings.Repeat("a", 95) + ".jpeg"},
		{Name: "long name without extension", Raw: long, Want: strings.Repeat("a", 100)},
		{Name: "long extension hard truncated", Raw: "a." + long, Want: "a." + strings.Repeat("a", 98)},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Want, snapsi.SanitizeFilename(tc.Raw))
		})
	}
}

func TestSanitizeFilename_Properties(t *testing.T) {
	inputs := []string{
		"photo.JPG?.png",
		"../../../../x",
		"..",
		".",
		"",
		`<script>alert("x")</script>.gif`,
		strings.Repeat("é", 150) + ".png",
		strings.Repeat(".", 50) + strings.Repeat("b", 99) + strings.Repeat(".", 50),
		strings.Repeat("x", 96) + "." + strings.Repeat("y", 10) + "...",
		strings.Repeat("ab.", 60),
		string([]byte{0xff, 0xfe, 'a', '.', 'p', 'n', 'g'}),
	}

	for _, in := range inputs {
		out := snapsi.SanitizeFilename(in)

		assert.Equal(t, out, snapsi.SanitizeFilename(out), "idempotent for %q", in)
		assert.LessOrEqual(t, utf8.RuneCountInString(out), 100, "length for %q", in)
		assert.False(t, strings.ContainsAny(out, `/\?%*:|"<>`), "charset for %q", in)
		assert.False(t, strings.HasPrefix(out, "."), "leading dot for %q", in)
		assert.False(t, strings.HasSuffix(out, "."), "trailing dot for %q", in)
		assert.True(t, utf8.ValidString(out), "utf8 for %q", in)
	}
}

func TestObjectKey(t *testing.T) {
	at := time.UnixMilli(1718000000123)

	assert.Equal(t, "f/photo.JPG__1718000000123.png", snapsi.ObjectKey("f", "photo.JPG_.png", at))
	assert.Equal(t, "f/README_1718000000123", snapsi.ObjectKey("f", "README", at))
	assert.Equal(t, "f/archive.tar_1718000000123.gz", snapsi.ObjectKey("f", "archive.tar.gz", at))
}
