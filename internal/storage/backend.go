package storage

import (
	"context"
	"errors"
	"time"

	"github.com/crewdocs/crewdocs-api/internal/models"
)

var (
	// ErrBucketExists is returned by CreateBucket when the bucket is already
	// there. The provisioner treats it as success so that concurrent cold
	// starts do not fail each other.
	ErrBucketExists = errors.New("bucket already exists")

	// ErrObjectNotFound is returned when a key does not exist in the store.
	ErrObjectNotFound = errors.New("object not found")

	// ErrSigningUnsupported is returned by backends that cannot produce
	// signed URLs; the locator falls back to a public URL.
	ErrSigningUnsupported = errors.New("backend does not support signed URLs")
)

// BucketPolicy is the fixed policy applied when a bucket is provisioned.
// Size and content-type limits are enforced at the upload boundary; the
// policy is recorded here so every provisioning call applies the same rules.
type BucketPolicy struct {
	MaxObjectSize       int64
	AllowedContentTypes []string
}

// Backend is the narrow blob-storage contract this service depends on.
// Implementations are selected at process startup; there is no runtime
// switching between backends.
type Backend interface {
	CreateBucket(ctx context.Context, name string, policy BucketPolicy) error
	ListBuckets(ctx context.Context) ([]string, error)
	PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, bucket, key string) error
	ListObjects(ctx context.Context, bucket, prefix string) ([]models.StoredFileMeta, error)
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	MoveObject(ctx context.Context, bucket, fromKey, toKey string) error
	SignURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	PublicURL(bucket, key string) string
}
