package storage

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD and drops combining marks, so accented
// characters reduce to their ASCII base letter.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// SanitizeFileName turns an arbitrary user-supplied file name into a
// storage-safe identifier: diacritics are stripped, every character outside
// [A-Za-z0-9._-] becomes an underscore, runs of underscores collapse, and
// leading/trailing underscores are trimmed. It is total and deterministic;
// empty input yields an empty string, so callers substitute a default base
// name when the raw name may be empty.
func SanitizeFileName(raw string) string {
	stripped, _, err := transform.String(stripMarks, raw)
	if err != nil {
		// transform.String only fails on a misbehaving transformer; fall
		// back to the raw input rather than failing the upload.
		stripped = raw
	}

	var b strings.Builder
	b.Grow(len(stripped))
	lastUnderscore := false
	for _, r := range stripped {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	return strings.Trim(b.String(), "_")
}
