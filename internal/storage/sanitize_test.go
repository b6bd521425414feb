package storage

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain name untouched", "report2024.pdf", "report2024.pdf"},
		{"diacritics stripped", "certidão-de-nascimento", "certidao-de-nascimento"},
		{"accented vowels", "Currículo José", "Curriculo_Jose"},
		{"spaces become underscores", "my scan copy", "my_scan_copy"},
		{"special chars collapse", "a!!@@##b", "a_b"},
		{"repeated underscores collapse", "a___b", "a_b"},
		{"leading and trailing trimmed", "__hello__", "hello"},
		{"only special chars", "!@#$%", ""},
		{"empty input", "", ""},
		{"keeps dots dashes", "v1.2-final.pdf", "v1.2-final.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFileName(tt.in))
		})
	}
}

func TestSanitizeFileNameIdempotent(t *testing.T) {
	inputs := []string{
		"relatório final (2).pdf",
		"ça va  bien",
		"____",
		"ASO João_da_Silva.PDF",
		"日本語ファイル",
	}

	for _, in := range inputs {
		once := SanitizeFileName(in)
		assert.Equal(t, once, SanitizeFileName(once), "sanitize must be idempotent for %q", in)
	}
}

func TestSanitizeFileNameCharset(t *testing.T) {
	safe := regexp.MustCompile(`^[A-Za-z0-9._-]*$`)

	inputs := []string{
		"multa São Paulo №42.png",
		"idée reçue/été.jpg",
		"tab\there",
		"emoji 🚧 cert",
	}

	for _, in := range inputs {
		out := SanitizeFileName(in)
		assert.Regexp(t, safe, out)
		assert.NotContains(t, out, "__")
		if out != "" {
			assert.NotEqual(t, byte('_'), out[0])
			assert.NotEqual(t, byte('_'), out[len(out)-1])
		}
	}
}
