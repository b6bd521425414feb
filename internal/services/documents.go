package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/crewdocs/crewdocs-api/internal/compliance"
	"github.com/crewdocs/crewdocs-api/internal/documents"
	"github.com/crewdocs/crewdocs-api/internal/export"
	"github.com/crewdocs/crewdocs-api/internal/models"
	"github.com/crewdocs/crewdocs-api/internal/repository"
	"github.com/crewdocs/crewdocs-api/internal/utils"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crewdocs_uploads_total",
		Help: "Document uploads by category and outcome",
	}, []string{"category", "outcome"})

	exportsScheduledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewdocs_export_downloads_scheduled_total",
		Help: "Downloads scheduled by the batch exporter",
	})

	exportItemFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewdocs_export_download_failures_total",
		Help: "Individual download failures inside export batches",
	})
)

// ErrNotFound is returned when a document record does not exist.
var ErrNotFound = errors.New("document not found")

// DownloadedDocument is the payload of a single-document download.
type DownloadedDocument struct {
	Data        []byte
	ContentType string
	FileName    string
}

type DocumentService interface {
	UploadDocument(ctx context.Context, req *models.UploadDocumentRequest) (*models.DocumentView, error)
	ReplaceDocument(ctx context.Context, id string, req *models.UploadDocumentRequest) (*models.DocumentView, error)
	GetDocument(ctx context.Context, id string) (*models.DocumentView, error)
	ListDocuments(ctx context.Context, subjectID string, category models.DocumentCategory) ([]models.DocumentView, error)
	DeleteDocument(ctx context.Context, id string) error
	ResolveDocumentURL(ctx context.Context, id string) (*models.ResolvedURL, error)
	DownloadDocument(ctx context.Context, id string) (*DownloadedDocument, error)
	ListStoredFiles(ctx context.Context, subjectID string, category models.DocumentCategory) ([]models.StoredFileMeta, error)
	GetComplianceSummary(ctx context.Context, subjectID string, category models.DocumentCategory) (*models.ComplianceSummary, error)
	GetStorageUsage(ctx context.Context, subjectID string) (*models.StorageUsage, error)
	ExportDocuments(ctx context.Context, req *models.ExportRequest) (*export.DraftMessage, error)
}

type documentService struct {
	repo     repository.Repository
	store    *documents.Store
	exporter *export.Exporter
	logger   *utils.Logger
}

func NewService(repo repository.Repository, store *documents.Store, exporter *export.Exporter, logger *utils.Logger) DocumentService {
	return &documentService{
		repo:     repo,
		store:    store,
		exporter: exporter,
		logger:   logger,
	}
}

func (s *documentService) UploadDocument(ctx context.Context, req *models.UploadDocumentRequest) (*models.DocumentView, error) {
	if req.SubjectID == "" {
		return nil, &documents.ValidationError{Reason: "subject ID is required"}
	}

	result, err := s.store.Upload(ctx, documents.UploadInput{
		SubjectID:   req.SubjectID,
		Category:    req.Category,
		SubType:     req.SubCategory,
		BaseName:    req.FileName,
		Data:        req.Data,
		ContentType: req.ContentType,
	})
	if err != nil {
		uploadsTotal.WithLabelValues(string(req.Category), "error").Inc()
		return nil, err
	}

	now := time.Now()
	title := req.Title
	if title == "" {
		title = req.FileName
	}

	rec := &models.DocumentRecord{
		ID:          utils.GenerateID(),
		SubjectID:   req.SubjectID,
		Category:    req.Category,
		SubCategory: req.SubCategory,
		Title:       title,
		StorageKey:  result.Key,
		FileURL:     result.URL.URL,
		FileSize:    result.Size,
		ContentType: result.ContentType,
		ExpiryDate:  req.ExpiryDate,
		IssueDate:   req.IssueDate,
		FineAmount:  req.FineAmount,
		FinePoints:  req.FinePoints,
		FineStatus:  req.FineStatus,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		s.logger.Error("Failed to save document record", "error", err, "key", result.Key)
		// Best-effort blob cleanup so no orphan stays user-visible.
		if _, cleanupErr := s.store.DeleteKey(ctx, result.Key); cleanupErr != nil {
			s.logger.Warn("Blob cleanup after failed record insert also failed",
				"key", result.Key, "error", cleanupErr)
		}
		return nil, fmt.Errorf("failed to save document metadata: %w", err)
	}

	uploadsTotal.WithLabelValues(string(req.Category), "ok").Inc()
	s.logger.Info("Document uploaded",
		"id", rec.ID,
		"subject_id", rec.SubjectID,
		"category", rec.Category,
		"sub_category", rec.SubCategory,
		"key", rec.StorageKey)

	return s.view(rec, &result.URL), nil
}

// ReplaceDocument uploads a new blob for an existing record, points the row
// at it and deletes the old blob. The old key is never reused.
func (s *documentService) ReplaceDocument(ctx context.Context, id string, req *models.UploadDocumentRequest) (*models.DocumentView, error) {
	rec, err := s.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := s.store.Upload(ctx, documents.UploadInput{
		SubjectID:   rec.SubjectID,
		Category:    rec.Category,
		SubType:     rec.SubCategory,
		BaseName:    req.FileName,
		Data:        req.Data,
		ContentType: req.ContentType,
	})
	if err != nil {
		return nil, err
	}

	oldKey := rec.StorageKey
	rec.StorageKey = result.Key
	rec.FileURL = result.URL.URL
	rec.FileSize = result.Size
	rec.ContentType = result.ContentType
	if req.Title != "" {
		rec.Title = req.Title
	}
	if req.ExpiryDate != nil {
		rec.ExpiryDate = req.ExpiryDate
	}
	if req.IssueDate != nil {
		rec.IssueDate = req.IssueDate
	}

	if err := s.repo.Update(ctx, rec); err != nil {
		s.logger.Error("Failed to update document record", "error", err, "id", id)
		if _, cleanupErr := s.store.DeleteKey(ctx, result.Key); cleanupErr != nil {
			s.logger.Warn("Blob cleanup after failed record update also failed",
				"key", result.Key, "error", cleanupErr)
		}
		return nil, fmt.Errorf("failed to update document metadata: %w", err)
	}

	if oldKey != "" {
		if removed, err := s.store.DeleteKey(ctx, oldKey); err != nil {
			s.logger.Warn("Failed to delete replaced blob", "key", oldKey, "error", err)
		} else if !removed {
			s.logger.Warn("Replaced blob was already gone", "key", oldKey)
		}
	}

	s.logger.Info("Document replaced", "id", rec.ID, "old_key", oldKey, "new_key", rec.StorageKey)
	return s.view(rec, &result.URL), nil
}

func (s *documentService) GetDocument(ctx context.Context, id string) (*models.DocumentView, error) {
	rec, err := s.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.store.ResolveURL(ctx, rec.StorageKey)
	if err != nil {
		s.logger.Warn("Failed to resolve document URL", "id", id, "error", err)
		return s.view(rec, nil), nil
	}
	return s.view(rec, &url), nil
}

func (s *documentService) ListDocuments(ctx context.Context, subjectID string, category models.DocumentCategory) ([]models.DocumentView, error) {
	records, err := s.repo.ListBySubject(ctx, subjectID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	views := make([]models.DocumentView, 0, len(records))
	for i := range records {
		views = append(views, *s.view(&records[i], nil))
	}
	return views, nil
}

func (s *documentService) DeleteDocument(ctx context.Context, id string) error {
	rec, err := s.getRecord(ctx, id)
	if err != nil {
		return err
	}

	if rec.StorageKey != "" {
		removed, err := s.store.DeleteKey(ctx, rec.StorageKey)
		if err != nil {
			return fmt.Errorf("failed to delete document blob: %w", err)
		}
		if !removed {
			s.logger.Warn("Document blob was already absent", "id", id, "key", rec.StorageKey)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document record: %w", err)
	}

	s.logger.Info("Document deleted", "id", id, "key", rec.StorageKey)
	return nil
}

func (s *documentService) ResolveDocumentURL(ctx context.Context, id string) (*models.ResolvedURL, error) {
	rec, err := s.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.store.ResolveURL(ctx, rec.StorageKey)
	if err != nil {
		return nil, err
	}
	return &url, nil
}

func (s *documentService) DownloadDocument(ctx context.Context, id string) (*DownloadedDocument, error) {
	rec, err := s.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := s.store.Download(ctx, rec.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to download document %q: %w", id, err)
	}

	return &DownloadedDocument{
		Data:        data,
		ContentType: rec.ContentType,
		FileName:    rec.Title,
	}, nil
}

func (s *documentService) ListStoredFiles(ctx context.Context, subjectID string, category models.DocumentCategory) ([]models.StoredFileMeta, error) {
	return s.store.List(ctx, subjectID, category)
}

func (s *documentService) GetComplianceSummary(ctx context.Context, subjectID string, category models.DocumentCategory) (*models.ComplianceSummary, error) {
	records, err := s.repo.ListBySubject(ctx, subjectID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	summary := compliance.Summarize(records, models.RequiredSubTypes(category), time.Now())
	summary.SubjectID = subjectID
	summary.Category = category
	return &summary, nil
}

func (s *documentService) GetStorageUsage(ctx context.Context, subjectID string) (*models.StorageUsage, error) {
	total, count, err := s.store.TotalSize(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute storage usage: %w", err)
	}

	return &models.StorageUsage{
		SubjectID:  subjectID,
		TotalBytes: total,
		TotalHuman: humanize.Bytes(uint64(total)),
		FileCount:  count,
	}, nil
}

func (s *documentService) ExportDocuments(ctx context.Context, req *models.ExportRequest) (*export.DraftMessage, error) {
	records, err := s.repo.ListByIDs(ctx, req.DocumentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load selected documents: %w", err)
	}

	// The schedule outlives the HTTP request: the handler responds 202 and
	// net/http cancels the request context right after, which would otherwise
	// stop the stagger before the second item. Callers that want to abort a
	// batch cancel through the exporter, not through the request.
	draft, results, err := s.exporter.ExportSelection(context.WithoutCancel(ctx),
		records, export.Channel(req.Channel), req.Recipient, req.SubjectName)
	if err != nil {
		return nil, err
	}

	exportsScheduledTotal.Add(float64(draft.Scheduled))

	// The caller gets the draft immediately; per-item outcomes are drained
	// here for logging and metrics.
	go func() {
		for res := range results {
			if res.Err != nil {
				exportItemFailures.Inc()
				s.logger.Warn("Export item failed",
					"record_id", res.RecordID, "error", res.Err)
				continue
			}
			s.logger.Debug("Export item downloaded",
				"record_id", res.RecordID, "size", res.Size)
		}
	}()

	s.logger.Info("Export prepared",
		"subject_id", req.SubjectID,
		"channel", draft.Channel,
		"scheduled", draft.Scheduled)
	return draft, nil
}

func (s *documentService) getRecord(ctx context.Context, id string) (*models.DocumentRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %q: %w", id, err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *documentService) view(rec *models.DocumentRecord, url *models.ResolvedURL) *models.DocumentView {
	now := time.Now()
	return &models.DocumentView{
		DocumentRecord: *rec,
		State:          compliance.Classify(rec.ExpiryDate, now),
		StatusMessage:  compliance.HumanizeDaysRemaining(rec.ExpiryDate, now),
		URL:            url,
	}
}
