// Package storage persists uploaded attachments and resolves them to public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spatalkback/talkback/internal/config"
)

const (
	DriverLocal = "local"
	DriverMinio = "minio"
)

// Storage saves attachments and removes them by the URL it returned
type Storage interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// New builds the Storage selected by cfg.StorageDriver
func New(cfg *config.Config, logger *slog.Logger) (Storage, error) {
	switch cfg.StorageDriver {
	case DriverLocal, "":
		logger.Info("📁 [Storage] Using local disk", "dir", cfg.UploadDir, "url", cfg.MediaURL)
		return NewLocalStorage(cfg.UploadDir, cfg.MediaURL)
	case DriverMinio:
		logger.Info("🪣 [Storage] Using MinIO",
			"endpoint", cfg.MinioEndpoint,
			"bucket", cfg.MinioBucket,
		)
		return NewMinioStorage(context.Background(), MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			PublicURL: cfg.MinioPublicURL,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}
}
