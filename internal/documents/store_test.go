package documents

import (
	"bytes"
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdocs/crewdocs-api/internal/models"
	"github.com/crewdocs/crewdocs-api/internal/storage"
	"github.com/crewdocs/crewdocs-api/internal/utils"
)

const testBucket = "personnel-documents"

// Minimal but real PDF header so content sniffing recognizes the payload.
var pdfPayload = append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 512)...)

func newTestStore(t *testing.T) (*Store, *storage.MemBackend) {
	t.Helper()
	backend := storage.NewMemBackend()
	store := NewStore(backend, testBucket, Options{
		MaxFileSize: 10 * 1024 * 1024,
		AllowedContentTypes: []string{
			"application/pdf", "image/png", "image/jpeg", "application/zip",
		},
	}, utils.NewLogger("error"))
	return store, backend
}

func TestUploadDeleteListRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	payload := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("a"), 2<<20)...)
	result, err := store.Upload(ctx, UploadInput{
		SubjectID:   "emp-1",
		Category:    models.CategoryPersonalID,
		SubType:     models.SubTypeNationalID,
		BaseName:    "id-card.pdf",
		Data:        payload,
		ContentType: "application/pdf",
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^emp-1/personal-id/national-id/id-card_\d+_[a-z0-9]{6}\.pdf$`), result.Key)
	assert.NotEmpty(t, result.URL.URL)
	assert.Equal(t, int64(len(payload)), result.Size)

	metas, err := store.List(ctx, "emp-1", models.CategoryPersonalID)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, result.Key, metas[0].Key)

	removed, err := store.Delete(ctx, result.URL.URL)
	require.NoError(t, err)
	assert.True(t, removed)

	metas, err = store.List(ctx, "emp-1", models.CategoryPersonalID)
	require.NoError(t, err)
	assert.Empty(t, metas)
}

func TestUploadRejectsDisallowedContentType(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Upload(context.Background(), UploadInput{
		SubjectID:   "emp-1",
		Category:    models.CategoryGeneral,
		BaseName:    "script.sh",
		Data:        []byte("#!/bin/sh\necho hi\n"),
		ContentType: "text/x-shellscript",
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Reason, "not allowed")
}

func TestUploadSniffsMissingContentType(t *testing.T) {
	store, _ := newTestStore(t)

	result, err := store.Upload(context.Background(), UploadInput{
		SubjectID: "emp-1",
		Category:  models.CategoryGeneral,
		BaseName:  "scan",
		Data:      pdfPayload,
	})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Regexp(t, `\.pdf$`, result.Key)
}

func TestUploadRejectsOversizeFile(t *testing.T) {
	backend := storage.NewMemBackend()
	store := NewStore(backend, testBucket, Options{
		MaxFileSize:         1024,
		AllowedContentTypes: []string{"application/pdf"},
	}, utils.NewLogger("error"))

	_, err := store.Upload(context.Background(), UploadInput{
		SubjectID:   "emp-1",
		Category:    models.CategoryGeneral,
		BaseName:    "big.pdf",
		Data:        append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 4096)...),
		ContentType: "application/pdf",
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Reason, "exceeds")
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Upload(context.Background(), UploadInput{
		SubjectID: "emp-1",
		Category:  models.CategoryGeneral,
		BaseName:  "nothing.pdf",
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

// urllessBackend can neither sign nor produce public URLs, so URL issuance
// always fails after the blob write.
type urllessBackend struct {
	*storage.MemBackend
}

func (b *urllessBackend) SignURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return "", storage.ErrSigningUnsupported
}

func (b *urllessBackend) PublicURL(bucket, key string) string {
	return ""
}

func TestUploadCleansUpWhenURLIssuanceFails(t *testing.T) {
	backend := &urllessBackend{MemBackend: storage.NewMemBackend()}
	store := NewStore(backend, testBucket, Options{
		AllowedContentTypes: []string{"application/pdf"},
	}, utils.NewLogger("error"))
	ctx := context.Background()

	_, err := store.Upload(ctx, UploadInput{
		SubjectID:   "emp-1",
		Category:    models.CategoryGeneral,
		BaseName:    "doc.pdf",
		Data:        pdfPayload,
		ContentType: "application/pdf",
	})

	var urlErr *storage.URLResolutionError
	require.ErrorAs(t, err, &urlErr)

	// The failed upload must not leave the blob behind.
	metas, err := store.List(ctx, "emp-1", models.CategoryGeneral)
	require.NoError(t, err)
	assert.Empty(t, metas)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	result, err := store.Upload(ctx, UploadInput{
		SubjectID:   "emp-1",
		Category:    models.CategoryFine,
		BaseName:    "speeding.pdf",
		Data:        pdfPayload,
		ContentType: "application/pdf",
	})
	require.NoError(t, err)

	removed, err := store.DeleteKey(ctx, result.Key)
	require.NoError(t, err)
	assert.True(t, removed)

	// Already gone: success, reported distinctly.
	removed, err = store.DeleteKey(ctx, result.Key)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDeleteUnparseableURL(t *testing.T) {
	store, _ := newTestStore(t)

	removed, err := store.Delete(context.Background(), "https://elsewhere.example/unrelated/path.pdf")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestListNewestFirst(t *testing.T) {
	store, backend := newTestStore(t)
	ctx := context.Background()

	// Seed directly so the timestamps differ deterministically.
	require.NoError(t, backend.CreateBucket(ctx, testBucket, storage.BucketPolicy{}))
	require.NoError(t, backend.PutObject(ctx, testBucket, "emp-1/general/old.pdf", pdfPayload, "application/pdf"))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, backend.PutObject(ctx, testBucket, "emp-1/general/new.pdf", pdfPayload, "application/pdf"))

	metas, err := store.List(ctx, "emp-1", models.CategoryGeneral)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "emp-1/general/new.pdf", metas[0].Key)
	assert.Equal(t, "emp-1/general/old.pdf", metas[1].Key)
}

func TestDownloadRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	result, err := store.Upload(ctx, UploadInput{
		SubjectID:   "emp-1",
		Category:    models.CategoryCertificate,
		BaseName:    "course.pdf",
		Data:        pdfPayload,
		ContentType: "application/pdf",
	})
	require.NoError(t, err)

	data, err := store.Download(ctx, result.Key)
	require.NoError(t, err)
	assert.Equal(t, pdfPayload, data)
}

func TestDownloadMissingKey(t *testing.T) {
	store, _ := newTestStore(t)

	// Provision the bucket first via a real upload.
	_, err := store.Upload(context.Background(), UploadInput{
		SubjectID:   "emp-1",
		Category:    models.CategoryGeneral,
		BaseName:    "a.pdf",
		Data:        pdfPayload,
		ContentType: "application/pdf",
	})
	require.NoError(t, err)

	_, err = store.Download(context.Background(), "emp-1/general/missing.pdf")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestMove(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	result, err := store.Upload(ctx, UploadInput{
		SubjectID:   "emp-1",
		Category:    models.CategoryGeneral,
		BaseName:    "misc.pdf",
		Data:        pdfPayload,
		ContentType: "application/pdf",
	})
	require.NoError(t, err)

	toKey := "emp-2/general/misc.pdf"
	require.NoError(t, store.Move(ctx, result.Key, toKey))

	_, err = store.Download(ctx, result.Key)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	data, err := store.Download(ctx, toKey)
	require.NoError(t, err)
	assert.Equal(t, pdfPayload, data)
}

func TestTotalSize(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, category := range []models.DocumentCategory{models.CategoryGeneral, models.CategoryCertificate} {
		_, err := store.Upload(ctx, UploadInput{
			SubjectID:   "emp-1",
			Category:    category,
			BaseName:    "doc.pdf",
			Data:        pdfPayload,
			ContentType: "application/pdf",
		})
		require.NoError(t, err)
	}

	total, count, err := store.TotalSize(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2*len(pdfPayload)), total)
	assert.Equal(t, 2, count)
}
