package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/crewdocs/crewdocs-api/internal/documents"
	"github.com/crewdocs/crewdocs-api/internal/export"
	"github.com/crewdocs/crewdocs-api/internal/models"
	"github.com/crewdocs/crewdocs-api/internal/services"
	"github.com/crewdocs/crewdocs-api/internal/utils"
)

type DocumentHandler struct {
	service     services.DocumentService
	maxFileSize int64
	logger      *utils.Logger
}

func NewDocumentHandler(service services.DocumentService, maxFileSize int64, logger *utils.Logger) *DocumentHandler {
	return &DocumentHandler{
		service:     service,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// UploadDocuments accepts one or more files in a multipart form and creates a
// document record per file. Shared form fields (category, sub_category,
// expiry_date, ...) apply to every file in the request.
func (h *DocumentHandler) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	subjectID := mux.Vars(r)["subjectId"]

	// All files plus form overhead; individual files are checked again below.
	r.Body = http.MaxBytesReader(w, r.Body, 4*h.maxFileSize)
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		h.respondError(w, utils.NewBadRequestError("Invalid or oversized form data"))
		return
	}

	category, err := models.ParseCategory(r.FormValue("category"))
	if err != nil {
		h.respondError(w, utils.NewBadRequestError(err.Error()))
		return
	}
	subType, err := models.ParseSubType(category, r.FormValue("sub_category"))
	if err != nil {
		h.respondError(w, utils.NewBadRequestError(err.Error()))
		return
	}

	expiry, err := parseDateField(r.FormValue("expiry_date"))
	if err != nil {
		h.respondError(w, utils.NewBadRequestError("expiry_date must be YYYY-MM-DD"))
		return
	}
	issue, err := parseDateField(r.FormValue("issue_date"))
	if err != nil {
		h.respondError(w, utils.NewBadRequestError("issue_date must be YYYY-MM-DD"))
		return
	}

	fineAmount, finePoints, fineStatus, err := parseFineFields(r, category)
	if err != nil {
		h.respondError(w, utils.NewBadRequestError(err.Error()))
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		h.respondError(w, utils.NewBadRequestError("No file provided"))
		return
	}

	var views []models.DocumentView
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			h.respondError(w, utils.NewInternalError("Failed to read uploaded file"))
			return
		}

		data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
		file.Close()
		if err != nil {
			h.respondError(w, utils.NewInternalError("Failed to read uploaded file"))
			return
		}

		view, err := h.service.UploadDocument(r.Context(), &models.UploadDocumentRequest{
			SubjectID:   subjectID,
			Category:    category,
			SubCategory: subType,
			Title:       r.FormValue("title"),
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
			ExpiryDate:  expiry,
			IssueDate:   issue,
			FineAmount:  fineAmount,
			FinePoints:  finePoints,
			FineStatus:  fineStatus,
		})
		if err != nil {
			h.respondError(w, err)
			return
		}
		views = append(views, *view)
	}

	if len(views) == 1 {
		h.respondJSON(w, http.StatusCreated, views[0])
		return
	}
	h.respondJSON(w, http.StatusCreated, views)
}

func (h *DocumentHandler) ReplaceDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxFileSize)
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		h.respondError(w, utils.NewBadRequestError("Invalid or oversized form data"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, utils.NewBadRequestError("No file provided"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		h.respondError(w, utils.NewInternalError("Failed to read uploaded file"))
		return
	}

	expiry, err := parseDateField(r.FormValue("expiry_date"))
	if err != nil {
		h.respondError(w, utils.NewBadRequestError("expiry_date must be YYYY-MM-DD"))
		return
	}

	view, err := h.service.ReplaceDocument(r.Context(), id, &models.UploadDocumentRequest{
		Title:       r.FormValue("title"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		ExpiryDate:  expiry,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	subjectID := mux.Vars(r)["subjectId"]

	category, err := optionalCategory(r)
	if err != nil {
		h.respondError(w, utils.NewBadRequestError(err.Error()))
		return
	}

	views, err := h.service.ListDocuments(r.Context(), subjectID, category)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, views)
}

func (h *DocumentHandler) ListStoredFiles(w http.ResponseWriter, r *http.Request) {
	subjectID := mux.Vars(r)["subjectId"]

	category, err := optionalCategory(r)
	if err != nil {
		h.respondError(w, utils.NewBadRequestError(err.Error()))
		return
	}

	metas, err := h.service.ListStoredFiles(r.Context(), subjectID, category)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, metas)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetDocument(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteDocument(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) ResolveDocumentURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.service.ResolveDocumentURL(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, url)
}

func (h *DocumentHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.DownloadDocument(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.Write(doc.Data)
}

func (h *DocumentHandler) GetComplianceSummary(w http.ResponseWriter, r *http.Request) {
	subjectID := mux.Vars(r)["subjectId"]

	category, err := models.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		h.respondError(w, utils.NewBadRequestError(err.Error()))
		return
	}

	summary, err := h.service.GetComplianceSummary(r.Context(), subjectID, category)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, summary)
}

func (h *DocumentHandler) GetStorageUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.service.GetStorageUsage(r.Context(), mux.Vars(r)["subjectId"])
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, usage)
}

func (h *DocumentHandler) ExportDocuments(w http.ResponseWriter, r *http.Request) {
	var req models.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, utils.NewBadRequestError("Invalid JSON body"))
		return
	}
	req.SubjectID = mux.Vars(r)["subjectId"]

	draft, err := h.service.ExportDocuments(r.Context(), &req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusAccepted, draft)
}

func optionalCategory(r *http.Request) (models.DocumentCategory, error) {
	raw := r.URL.Query().Get("category")
	if raw == "" {
		return "", nil
	}
	return models.ParseCategory(raw)
}

func parseDateField(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseFineFields(r *http.Request, category models.DocumentCategory) (*float64, *int, *models.FineStatus, error) {
	if category != models.CategoryFine {
		return nil, nil, nil, nil
	}

	var (
		amount *float64
		points *int
		status *models.FineStatus
	)

	if raw := r.FormValue("fine_amount"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("fine_amount must be a number")
		}
		amount = &v
	}
	if raw := r.FormValue("fine_points"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("fine_points must be an integer")
		}
		points = &v
	}
	if raw := r.FormValue("fine_status"); raw != "" {
		switch s := models.FineStatus(raw); s {
		case models.FinePaid, models.FinePending, models.FineUnderAppeal:
			status = &s
		default:
			return nil, nil, nil, fmt.Errorf("unknown fine_status %q", raw)
		}
	}

	return amount, points, status, nil
}

func (h *DocumentHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (h *DocumentHandler) respondError(w http.ResponseWriter, err error) {
	var (
		status  int
		message string
	)

	var appErr *utils.AppError
	var validationErr *documents.ValidationError
	var exportErr *export.ExportError

	switch {
	case errors.As(err, &appErr):
		status = appErr.StatusCode
		message = appErr.Message
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
		message = validationErr.Reason
	case errors.As(err, &exportErr):
		status = http.StatusBadRequest
		message = exportErr.Error()
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
		message = "Document not found"
	default:
		status = http.StatusInternalServerError
		message = "Internal server error"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "status", status, "error", err)
	} else {
		h.logger.Warn("Request rejected", "status", status, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
