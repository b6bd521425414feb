package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/crewdocs/crewdocs-api/internal/config"
	"github.com/crewdocs/crewdocs-api/internal/models"
)

// MinioBackend implements Backend over a MinIO / S3-compatible store.
type MinioBackend struct {
	client *minio.Client
}

func NewMinioBackend(cfg *config.Config) (*MinioBackend, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return &MinioBackend{client: client}, nil
}

func (b *MinioBackend) CreateBucket(ctx context.Context, name string, _ BucketPolicy) error {
	err := b.client.MakeBucket(ctx, name, minio.MakeBucketOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "BucketAlreadyOwnedByYou" || resp.Code == "BucketAlreadyExists" {
			return ErrBucketExists
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func (b *MinioBackend) ListBuckets(ctx context.Context) ([]string, error) {
	buckets, err := b.client.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	names := make([]string, 0, len(buckets))
	for _, bucket := range buckets {
		names = append(names, bucket.Name)
	}
	return names, nil
}

func (b *MinioBackend) PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	reader := bytes.NewReader(data)

	_, err := b.client.PutObject(ctx, bucket, key, reader, int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload object %q: %w", key, err)
	}
	return nil
}

func (b *MinioBackend) DeleteObject(ctx context.Context, bucket, key string) error {
	err := b.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}
	return nil
}

func (b *MinioBackend) ListObjects(ctx context.Context, bucket, prefix string) ([]models.StoredFileMeta, error) {
	var metas []models.StoredFileMeta
	for object := range b.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:       prefix,
		Recursive:    true,
		WithMetadata: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects with prefix %q: %w", prefix, object.Err)
		}
		metas = append(metas, models.StoredFileMeta{
			Key:         object.Key,
			Name:        baseName(object.Key),
			Size:        object.Size,
			ContentType: object.ContentType,
			UploadedAt:  object.LastModified,
		})
	}

	// Newest first.
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UploadedAt.After(metas[j].UploadedAt)
	})
	return metas, nil
}

func (b *MinioBackend) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	object, err := b.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %q: %w", key, err)
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(object); err != nil {
		// GetObject defers most failures to the first read.
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, fmt.Errorf("object %q: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to read object %q: %w", key, err)
	}

	return buf.Bytes(), nil
}

func (b *MinioBackend) MoveObject(ctx context.Context, bucket, fromKey, toKey string) error {
	_, err := b.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: bucket, Object: toKey},
		minio.CopySrcOptions{Bucket: bucket, Object: fromKey},
	)
	if err != nil {
		return fmt.Errorf("failed to copy object %q to %q: %w", fromKey, toKey, err)
	}

	if err := b.DeleteObject(ctx, bucket, fromKey); err != nil {
		return fmt.Errorf("failed to remove source after copy: %w", err)
	}
	return nil
}

func (b *MinioBackend) SignURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	signed, err := b.client.PresignedGetObject(ctx, bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign object %q: %w", key, err)
	}
	return signed.String(), nil
}

func (b *MinioBackend) PublicURL(bucket, key string) string {
	endpoint := b.client.EndpointURL()
	if endpoint == nil {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", endpoint.String(), bucket, key)
}

var _ Backend = (*MinioBackend)(nil)

func baseName(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[i+1:]
		}
	}
	return key
}
