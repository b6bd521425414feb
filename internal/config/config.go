package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	BackendMinio  = "minio"
	BackendMemory = "memory"
)

type Config struct {
	Port         string
	LogLevel     string
	DatabaseFile string

	// Storage backend selection: "minio" or "memory". The memory backend is
	// for local development and tests only.
	StorageBackendKind string

	// S3 / MinIO
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3BucketName      string
	S3UseSSL          bool

	// Upload policy
	MaxFileSize         int64
	AllowedContentTypes []string

	// Blob I/O
	SignedURLTTL   time.Duration
	StorageTimeout time.Duration

	// Batch export
	ExportStagger time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseFile:       getEnv("DATABASE_FILE", "data/crewdocs.db"),
		StorageBackendKind: getEnv("STORAGE_BACKEND", BackendMinio),
		S3Endpoint:         getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKeyID:      getEnv("S3_ACCESS_KEY_ID", "minioadmin"),
		S3SecretAccessKey:  getEnv("S3_SECRET_ACCESS_KEY", "minioadmin"),
		S3BucketName:       getEnv("S3_BUCKET_NAME", "personnel-documents"),
		S3UseSSL:           getEnv("S3_USE_SSL", "false") == "true",
		MaxFileSize:        getEnvInt64("MAX_FILE_SIZE", 10*1024*1024),
		AllowedContentTypes: []string{
			"application/pdf",
			"image/png",
			"image/jpeg",
			"application/zip",
			"application/x-zip-compressed",
		},
		SignedURLTTL:   getEnvDuration("SIGNED_URL_TTL", time.Hour),
		StorageTimeout: getEnvDuration("STORAGE_TIMEOUT", 30*time.Second),
		ExportStagger:  getEnvDuration("EXPORT_STAGGER", 500*time.Millisecond),
	}

	if cfg.StorageBackendKind != BackendMinio && cfg.StorageBackendKind != BackendMemory {
		return nil, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q",
			BackendMinio, BackendMemory, cfg.StorageBackendKind)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
