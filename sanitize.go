package snapsi

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxFilenameLength = 100
	maxBaseLength     = 95
)

var unsafeFilenameChars = strings.NewReplacer(
	"/", "_", `\`, "_", "?", "_", "%", "_", "*", "_",
	":", "_", "|", "_", `"`, "_", "<", "_", ">", "_",
)

// SanitizeFilename turns an untrusted client filename into a storage safe name.
//
// Rules, applied in order:
//  1. every character of / \ ? % * : | " < > and every control character becomes "_"
//  2. leading and trailing dots are stripped
//  3. names longer than 100 characters keep their extension while the base is cut to 95
//     characters; if the extension alone does not fit, the name is cut to 100 characters
//
// The result is idempotent and may be empty, which callers must reject.
func SanitizeFilename(raw string) string {
	name := strings.ToValidUTF8(raw, "_")
	name = unsafeFilenameChars.Replace(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, ".")

	if utf8.RuneCountInString(name) <= maxFilenameLength {
		return name
	}

	base, ext := splitExt(name)
	if ext != "" {
		name = truncateRunes(base, maxBaseLength) + "." + ext
	}
	if utf8.RuneCountInString(name) > maxFilenameLength {
		name = strings.TrimRight(truncateRunes(name, maxFilenameLength), ".")
	}

	return name
}

// ObjectKey derives the storage key of an upload from a sanitized filename:
// {folderID}/{base}_{unixMillis}.{ext}, or {folderID}/{base}_{unixMillis}
// when the name has no extension.
func ObjectKey(folderID, sanitized string, at time.Time) string {
	return folderID + "/" + objectName(sanitized, at)
}

func objectName(sanitized string, at time.Time) string {
	base, ext := splitExt(sanitized)
	name := base + "_" + strconv.FormatInt(at.UnixMilli(), 10)
	if ext != "" {
		name += "." + ext
	}
	return name
}

func splitExt(name string) (string, string) {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 || idx == len(name)-1 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
