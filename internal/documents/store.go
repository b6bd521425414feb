// Package documents implements the blob side of the document subsystem:
// uploading, deleting, listing and downloading raw files for a subject and
// category, on top of a pluggable storage backend.
package documents

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"github.com/crewdocs/crewdocs-api/internal/models"
	"github.com/crewdocs/crewdocs-api/internal/storage"
	"github.com/crewdocs/crewdocs-api/internal/utils"
)

// UploadInput is one file heading into the store. ContentType may be empty or
// generic; the store sniffs the real type from the payload in that case.
type UploadInput struct {
	SubjectID   string
	Category    models.DocumentCategory
	SubType     models.SubType
	BaseName    string
	Data        []byte
	ContentType string
}

// UploadResult reports where the blob landed and how to retrieve it.
type UploadResult struct {
	Key         string
	URL         models.ResolvedURL
	Size        int64
	ContentType string
}

// Options tunes the store. Zero values fall back to sane defaults.
type Options struct {
	MaxFileSize         int64
	AllowedContentTypes []string
	SignedURLTTL        time.Duration
	OperationTimeout    time.Duration
}

// Store uploads, deletes, lists and downloads document blobs. Every call is
// independent; there is no shared mutable state between calls beyond the
// one-time bucket provisioning.
type Store struct {
	backend storage.Backend
	locator *storage.Locator
	prov    *storage.Provisioner
	bucket  string
	opts    Options
	logger  *utils.Logger

	// Bucket provisioning is lazy: the first call per process pays for the
	// existence check, later calls skip it. A failed attempt re-arms so the
	// next call retries.
	provMu   sync.Mutex
	provDone bool
}

func NewStore(backend storage.Backend, bucket string, opts Options, logger *utils.Logger) *Store {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = 10 * 1024 * 1024
	}
	if opts.SignedURLTTL <= 0 {
		opts.SignedURLTTL = time.Hour
	}
	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = 30 * time.Second
	}
	if len(opts.AllowedContentTypes) == 0 {
		opts.AllowedContentTypes = []string{
			"application/pdf", "image/png", "image/jpeg",
			"application/zip", "application/x-zip-compressed",
		}
	}

	return &Store{
		backend: backend,
		locator: storage.NewLocator(backend, bucket),
		prov:    storage.NewProvisioner(backend, logger),
		bucket:  bucket,
		opts:    opts,
		logger:  logger,
	}
}

// Locator exposes the store's key/URL derivation, mainly so callers can
// re-resolve URLs from persisted storage keys.
func (s *Store) Locator() *storage.Locator {
	return s.locator
}

// Upload validates the file against the upload policy, provisions the bucket
// on first use, derives a fresh collision-free key, writes the blob and
// issues a retrieval URL. Either a URL is returned or no object is visible
// to the caller.
func (s *Store) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	contentType, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}

	baseName := in.BaseName
	ext := ""
	if dot := strings.LastIndex(baseName, "."); dot > 0 {
		ext = baseName[dot+1:]
		baseName = baseName[:dot]
	}
	if ext == "" {
		ext = extensionFor(contentType)
	}

	key := s.locator.BuildKey(in.SubjectID, in.Category, in.SubType, baseName, ext)

	opCtx, cancel := context.WithTimeout(ctx, s.opts.OperationTimeout)
	defer cancel()

	if err := s.backend.PutObject(opCtx, s.bucket, key, in.Data, contentType); err != nil {
		return nil, &UploadError{Key: key, Err: err}
	}

	url, err := s.locator.IssueURL(opCtx, key, s.opts.SignedURLTTL)
	if err != nil {
		// The blob is already written; remove it so the failed upload leaves
		// nothing visible behind.
		if delErr := s.backend.DeleteObject(opCtx, s.bucket, key); delErr != nil {
			s.logger.Warn("Failed to remove blob after URL issuance failure",
				"key", key, "error", delErr)
		}
		return nil, err
	}

	s.logger.Info("Uploaded document blob",
		"key", key,
		"subject_id", in.SubjectID,
		"category", in.Category,
		"size", humanize.Bytes(uint64(len(in.Data))),
		"signed_url", url.Signed)

	return &UploadResult{
		Key:         key,
		URL:         url,
		Size:        int64(len(in.Data)),
		ContentType: contentType,
	}, nil
}

// Delete removes the blob a previously issued URL points at. It returns
// (false, nil) when the URL cannot be parsed or the object is already gone:
// delete is idempotent, "already absent" is success, but the distinct result
// lets callers warn.
func (s *Store) Delete(ctx context.Context, fileURL string) (bool, error) {
	key := s.locator.KeyFromURL(fileURL)
	if key == "" {
		s.logger.Warn("Could not parse storage key from URL", "url", fileURL)
		return false, nil
	}
	return s.DeleteKey(ctx, key)
}

// DeleteKey removes a blob by storage key with the same idempotent semantics
// as Delete.
func (s *Store) DeleteKey(ctx context.Context, key string) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.opts.OperationTimeout)
	defer cancel()

	present, err := s.exists(opCtx, key)
	if err != nil {
		return false, err
	}
	if !present {
		return false, nil
	}

	if err := s.backend.DeleteObject(opCtx, s.bucket, key); err != nil {
		return false, fmt.Errorf("failed to delete object %q: %w", key, err)
	}
	return true, nil
}

// List returns the stored blobs for a subject, newest first, optionally
// narrowed to one category.
func (s *Store) List(ctx context.Context, subjectID string, category models.DocumentCategory) ([]models.StoredFileMeta, error) {
	prefix := subjectID + "/"
	if category != "" {
		prefix += string(category) + "/"
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opts.OperationTimeout)
	defer cancel()

	metas, err := s.backend.ListObjects(opCtx, s.bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents for subject %q: %w", subjectID, err)
	}
	return metas, nil
}

// Download fetches the raw blob bytes for a key.
func (s *Store) Download(ctx context.Context, key string) ([]byte, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.opts.OperationTimeout)
	defer cancel()

	return s.backend.GetObject(opCtx, s.bucket, key)
}

// Move relocates a blob. Reorganization workflows only, never the upload
// path.
func (s *Store) Move(ctx context.Context, fromKey, toKey string) error {
	opCtx, cancel := context.WithTimeout(ctx, s.opts.OperationTimeout)
	defer cancel()

	if err := s.backend.MoveObject(opCtx, s.bucket, fromKey, toKey); err != nil {
		return fmt.Errorf("failed to move object: %w", err)
	}
	return nil
}

// ResolveURL issues a fresh retrieval URL for a persisted storage key.
func (s *Store) ResolveURL(ctx context.Context, key string) (models.ResolvedURL, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.opts.OperationTimeout)
	defer cancel()

	return s.locator.IssueURL(opCtx, key, s.opts.SignedURLTTL)
}

// TotalSize sums the blob footprint of one subject across all categories.
func (s *Store) TotalSize(ctx context.Context, subjectID string) (int64, int, error) {
	metas, err := s.List(ctx, subjectID, "")
	if err != nil {
		return 0, 0, err
	}

	var total int64
	for _, meta := range metas {
		total += meta.Size
	}
	return total, len(metas), nil
}

func (s *Store) validate(in UploadInput) (string, error) {
	if len(in.Data) == 0 {
		return "", &ValidationError{Reason: "uploaded file is empty"}
	}
	if int64(len(in.Data)) > s.opts.MaxFileSize {
		return "", &ValidationError{Reason: fmt.Sprintf(
			"file size %s exceeds the %s limit",
			humanize.Bytes(uint64(len(in.Data))),
			humanize.Bytes(uint64(s.opts.MaxFileSize)))}
	}

	contentType := in.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(in.Data).String()
	}
	// Detect appends parameters like "; charset=utf-8" for text types.
	if idx := strings.Index(contentType, ";"); idx > 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}

	if !slices.Contains(s.opts.AllowedContentTypes, contentType) {
		return "", &ValidationError{Reason: fmt.Sprintf("content type %q is not allowed", contentType)}
	}
	return contentType, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	s.provMu.Lock()
	defer s.provMu.Unlock()

	if s.provDone {
		return nil
	}

	policy := storage.BucketPolicy{
		MaxObjectSize:       s.opts.MaxFileSize,
		AllowedContentTypes: s.opts.AllowedContentTypes,
	}
	if err := s.prov.EnsureBucket(ctx, s.bucket, policy); err != nil {
		return err
	}
	s.provDone = true
	return nil
}

// exists reports whether a key currently names an object, via a prefix
// listing since the backend contract has no stat call.
func (s *Store) exists(ctx context.Context, key string) (bool, error) {
	metas, err := s.backend.ListObjects(ctx, s.bucket, key)
	if err != nil {
		return false, fmt.Errorf("failed to check object %q: %w", key, err)
	}
	for _, meta := range metas {
		if meta.Key == key {
			return true, nil
		}
	}
	return false, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "application/pdf":
		return "pdf"
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "application/zip", "application/x-zip-compressed":
		return "zip"
	default:
		return "bin"
	}
}
