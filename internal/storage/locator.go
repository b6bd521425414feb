package storage

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/crewdocs/crewdocs-api/internal/models"
)

// defaultBaseName is used when sanitizing leaves nothing of the raw name.
const defaultBaseName = "file"

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// URLResolutionError means neither a signed nor a public URL could be
// produced for a key.
type URLResolutionError struct {
	Key     string
	SignErr error
}

func (e *URLResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve URL for key %q: %v", e.Key, e.SignErr)
}

func (e *URLResolutionError) Unwrap() error {
	return e.SignErr
}

// Locator derives storage keys for uploads and issues retrieval URLs.
type Locator struct {
	backend Backend
	bucket  string
}

func NewLocator(backend Backend, bucket string) *Locator {
	return &Locator{backend: backend, bucket: bucket}
}

// BuildKey produces {subject}/{category}[/{subType}]/{base}_{unixMillis}_{rand6}.{ext}.
// The timestamp plus random suffix is the collision-avoidance mechanism:
// best-effort, not cryptographic. Keys are never reused, even after deletion.
func (l *Locator) BuildKey(subjectID string, category models.DocumentCategory, subType models.SubType, baseName, ext string) string {
	base := SanitizeFileName(baseName)
	if base == "" {
		base = defaultBaseName
	}

	ext = SanitizeFileName(strings.ToLower(strings.TrimPrefix(ext, ".")))
	if ext == "" {
		ext = "bin"
	}

	prefix := fmt.Sprintf("%s/%s", subjectID, category)
	if subType != "" {
		prefix = fmt.Sprintf("%s/%s", prefix, subType)
	}

	return fmt.Sprintf("%s/%s_%d_%s.%s", prefix, base, time.Now().UnixMilli(), randomSuffix(6), ext)
}

// IssueURL obtains a time-limited signed URL for a key, falling back to the
// backend's public URL when signing fails. The two cases are distinguished in
// the result so callers can decide whether to cache or re-resolve.
func (l *Locator) IssueURL(ctx context.Context, key string, ttl time.Duration) (models.ResolvedURL, error) {
	signed, err := l.backend.SignURL(ctx, l.bucket, key, ttl)
	if err == nil {
		expires := time.Now().Add(ttl)
		return models.ResolvedURL{URL: signed, Signed: true, ExpiresAt: &expires}, nil
	}

	public := l.backend.PublicURL(l.bucket, key)
	if public == "" {
		return models.ResolvedURL{}, &URLResolutionError{Key: key, SignErr: err}
	}
	return models.ResolvedURL{URL: public, Signed: false}, nil
}

// KeyFromURL parses the storage key back out of a previously issued URL:
// the URL path minus the bucket prefix. Returns "" when the URL does not
// reference this locator's bucket.
func (l *Locator) KeyFromURL(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil {
		return ""
	}

	marker := "/" + l.bucket + "/"
	idx := strings.Index(u.Path, marker)
	if idx < 0 {
		return ""
	}
	return u.Path[idx+len(marker):]
}

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))]
	}
	return string(b)
}
