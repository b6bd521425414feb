package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/crewdocs/crewdocs-api/internal/models"
)

// MemBackend is an in-memory Backend for tests and local development. It is
// selected at startup through config; production always runs on MinIO.
type MemBackend struct {
	mu      sync.Mutex
	buckets map[string]map[string]memObject

	// DisableSigning makes SignURL fail so the public-URL fallback path can
	// be exercised.
	DisableSigning bool
}

type memObject struct {
	data        []byte
	contentType string
	uploadedAt  time.Time
}

func NewMemBackend() *MemBackend {
	return &MemBackend{buckets: make(map[string]map[string]memObject)}
}

func (b *MemBackend) CreateBucket(_ context.Context, name string, _ BucketPolicy) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.buckets[name]; ok {
		return ErrBucketExists
	}
	b.buckets[name] = make(map[string]memObject)
	return nil
}

func (b *MemBackend) ListBuckets(_ context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.buckets))
	for name := range b.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (b *MemBackend) PutObject(_ context.Context, bucket, key string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	objects, ok := b.buckets[bucket]
	if !ok {
		return fmt.Errorf("bucket %q does not exist", bucket)
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	objects[key] = memObject{data: stored, contentType: contentType, uploadedAt: time.Now()}
	return nil
}

func (b *MemBackend) DeleteObject(_ context.Context, bucket, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if objects, ok := b.buckets[bucket]; ok {
		delete(objects, key)
	}
	return nil
}

func (b *MemBackend) ListObjects(_ context.Context, bucket, prefix string) ([]models.StoredFileMeta, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	objects, ok := b.buckets[bucket]
	if !ok {
		return nil, nil
	}

	var metas []models.StoredFileMeta
	for key, obj := range objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		metas = append(metas, models.StoredFileMeta{
			Key:         key,
			Name:        baseName(key),
			Size:        int64(len(obj.data)),
			ContentType: obj.contentType,
			UploadedAt:  obj.uploadedAt,
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		if metas[i].UploadedAt.Equal(metas[j].UploadedAt) {
			return metas[i].Key > metas[j].Key
		}
		return metas[i].UploadedAt.After(metas[j].UploadedAt)
	})
	return metas, nil
}

func (b *MemBackend) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	objects, ok := b.buckets[bucket]
	if !ok {
		return nil, fmt.Errorf("object %q: %w", key, ErrObjectNotFound)
	}
	obj, ok := objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q: %w", key, ErrObjectNotFound)
	}

	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return data, nil
}

func (b *MemBackend) MoveObject(_ context.Context, bucket, fromKey, toKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	objects, ok := b.buckets[bucket]
	if !ok {
		return fmt.Errorf("object %q: %w", fromKey, ErrObjectNotFound)
	}
	obj, ok := objects[fromKey]
	if !ok {
		return fmt.Errorf("object %q: %w", fromKey, ErrObjectNotFound)
	}

	objects[toKey] = obj
	delete(objects, fromKey)
	return nil
}

func (b *MemBackend) SignURL(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if b.DisableSigning {
		return "", ErrSigningUnsupported
	}
	expires := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("https://storage.local/%s/%s?signed=1&expires=%d", bucket, key, expires), nil
}

func (b *MemBackend) PublicURL(bucket, key string) string {
	return fmt.Sprintf("https://storage.local/%s/%s", bucket, key)
}

var _ Backend = (*MemBackend)(nil)
