package storage

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdocs/crewdocs-api/internal/models"
)

const testBucket = "personnel-documents"

func TestBuildKeyShape(t *testing.T) {
	l := NewLocator(NewMemBackend(), testBucket)

	key := l.BuildKey("emp-1", models.CategoryPersonalID, models.SubTypeNationalID, "Certidão de Nascimento", "pdf")

	pattern := regexp.MustCompile(`^emp-1/personal-id/national-id/Certidao_de_Nascimento_\d{13}_[a-z0-9]{6}\.pdf$`)
	assert.Regexp(t, pattern, key)
}

func TestBuildKeyWithoutSubType(t *testing.T) {
	l := NewLocator(NewMemBackend(), testBucket)

	key := l.BuildKey("emp-2", models.CategoryGeneral, "", "notes", "zip")
	assert.Regexp(t, `^emp-2/general/notes_\d{13}_[a-z0-9]{6}\.zip$`, key)
}

func TestBuildKeyDefaultsEmptyBaseName(t *testing.T) {
	l := NewLocator(NewMemBackend(), testBucket)

	key := l.BuildKey("emp-3", models.CategoryCertificate, "", "!!!", "PDF")
	assert.Regexp(t, `^emp-3/certificate/file_\d{13}_[a-z0-9]{6}\.pdf$`, key)
}

func TestBuildKeyNeverCollides(t *testing.T) {
	l := NewLocator(NewMemBackend(), testBucket)

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		key := l.BuildKey("emp-1", models.CategoryRegulatory, models.SubTypeASO, "exam", "pdf")
		_, dup := seen[key]
		require.False(t, dup, "duplicate key generated: %s", key)
		seen[key] = struct{}{}
	}
}

func TestIssueURLSigned(t *testing.T) {
	backend := NewMemBackend()
	l := NewLocator(backend, testBucket)

	url, err := l.IssueURL(context.Background(), "emp-1/general/a.pdf", time.Hour)
	require.NoError(t, err)

	assert.True(t, url.Signed)
	assert.NotEmpty(t, url.URL)
	require.NotNil(t, url.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *url.ExpiresAt, 5*time.Second)
}

func TestIssueURLPublicFallback(t *testing.T) {
	backend := NewMemBackend()
	backend.DisableSigning = true
	l := NewLocator(backend, testBucket)

	url, err := l.IssueURL(context.Background(), "emp-1/general/a.pdf", time.Hour)
	require.NoError(t, err)

	assert.False(t, url.Signed)
	assert.Nil(t, url.ExpiresAt)
	assert.Contains(t, url.URL, "/"+testBucket+"/emp-1/general/a.pdf")
}

func TestKeyFromURL(t *testing.T) {
	l := NewLocator(NewMemBackend(), testBucket)

	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			"public url",
			"https://storage.local/personnel-documents/emp-1/general/a.pdf",
			"emp-1/general/a.pdf",
		},
		{
			"signed url ignores query",
			"https://storage.local/personnel-documents/emp-1/fine/m.png?signed=1&expires=12345",
			"emp-1/fine/m.png",
		},
		{
			"wrong bucket",
			"https://storage.local/other-bucket/emp-1/general/a.pdf",
			"",
		},
		{
			"garbage",
			"://not a url",
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.KeyFromURL(tt.url))
		})
	}
}

func TestIssueURLRoundTripsThroughKeyFromURL(t *testing.T) {
	backend := NewMemBackend()
	l := NewLocator(backend, testBucket)
	key := "emp-9/regulatory/nr-06/gloves_1700000000000_abc123.pdf"

	for _, disable := range []bool{false, true} {
		backend.DisableSigning = disable
		url, err := l.IssueURL(context.Background(), key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, key, l.KeyFromURL(url.URL))
	}
}
