package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crewdocs/crewdocs-api/internal/handlers"
	"github.com/crewdocs/crewdocs-api/internal/middleware"
	"github.com/crewdocs/crewdocs-api/internal/services"
	"github.com/crewdocs/crewdocs-api/internal/utils"
)

func NewRouter(docService services.DocumentService, maxFileSize int64, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Metrics())

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	docHandler := handlers.NewDocumentHandler(docService, maxFileSize, logger)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	// Subject-scoped endpoints
	api.HandleFunc("/subjects/{subjectId}/documents", docHandler.UploadDocuments).Methods(http.MethodPost)
	api.HandleFunc("/subjects/{subjectId}/documents", docHandler.ListDocuments).Methods(http.MethodGet)
	api.HandleFunc("/subjects/{subjectId}/files", docHandler.ListStoredFiles).Methods(http.MethodGet)
	api.HandleFunc("/subjects/{subjectId}/compliance", docHandler.GetComplianceSummary).Methods(http.MethodGet)
	api.HandleFunc("/subjects/{subjectId}/storage-usage", docHandler.GetStorageUsage).Methods(http.MethodGet)
	api.HandleFunc("/subjects/{subjectId}/export", docHandler.ExportDocuments).Methods(http.MethodPost)

	// Document endpoints
	api.HandleFunc("/documents/{id}", docHandler.GetDocument).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}", docHandler.ReplaceDocument).Methods(http.MethodPut)
	api.HandleFunc("/documents/{id}", docHandler.DeleteDocument).Methods(http.MethodDelete)
	api.HandleFunc("/documents/{id}/url", docHandler.ResolveDocumentURL).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/download", docHandler.DownloadDocument).Methods(http.MethodGet)

	return r
}
