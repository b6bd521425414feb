package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crewdocs/crewdocs-api/internal/config"
	"github.com/crewdocs/crewdocs-api/internal/db"
	"github.com/crewdocs/crewdocs-api/internal/documents"
	"github.com/crewdocs/crewdocs-api/internal/export"
	"github.com/crewdocs/crewdocs-api/internal/repository"
	"github.com/crewdocs/crewdocs-api/internal/router"
	"github.com/crewdocs/crewdocs-api/internal/services"
	"github.com/crewdocs/crewdocs-api/internal/storage"
	"github.com/crewdocs/crewdocs-api/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	// Initialize database
	database, err := db.NewSQLiteDB(cfg.DatabaseFile)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.DatabaseFile); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	// Select the storage backend once at startup.
	var backend storage.Backend
	switch cfg.StorageBackendKind {
	case config.BackendMemory:
		logger.Warn("Using in-memory storage backend; blobs are not durable")
		backend = storage.NewMemBackend()
	default:
		backend, err = storage.NewMinioBackend(cfg)
		if err != nil {
			logger.Fatal("Failed to initialize storage backend", "error", err)
		}
	}

	store := documents.NewStore(backend, cfg.S3BucketName, documents.Options{
		MaxFileSize:         cfg.MaxFileSize,
		AllowedContentTypes: cfg.AllowedContentTypes,
		SignedURLTTL:        cfg.SignedURLTTL,
		OperationTimeout:    cfg.StorageTimeout,
	}, logger)

	exporter := export.NewExporter(store, cfg.ExportStagger, logger)

	docRepo := repository.NewRepository(database)
	docService := services.NewService(docRepo, store, exporter, logger)

	// Setup HTTP router
	handler := router.NewRouter(docService, cfg.MaxFileSize, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "storage_backend", cfg.StorageBackendKind)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
