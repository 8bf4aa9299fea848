package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spatalkback/talkback/internal/storage"
	"github.com/spatalkback/talkback/internal/worker"
)

const cleanupTimeout = 30 * time.Second

// Upload directories, one per attachment slot
const (
	dirUserPhotos    = "user_photos"
	dirPostImages    = "post_images"
	dirPostFiles     = "post_files"
	dirCommentImages = "comment_images"
	dirCommentFiles  = "comment_files"
)

// attachments saves uploads synchronously and removes stale ones on the worker pool
type attachments struct {
	files  storage.Storage
	pool   *worker.Pool
	logger *slog.Logger
}

func (a *attachments) save(ctx context.Context, dir string, upload *storage.Upload) (*string, error) {
	if upload == nil {
		return nil, nil
	}
	url, err := a.files.Save(ctx, upload.ObjectName(dir), upload.Reader, upload.Size, upload.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}
	return &url, nil
}

// discard schedules removal of urls. Empty values are skipped.
func (a *attachments) discard(urls ...string) {
	pending := make([]string, 0, len(urls))
	for _, u := range urls {
		if u != "" {
			pending = append(pending, u)
		}
	}
	if len(pending) == 0 {
		return
	}

	a.pool.SubmitWithTimeout("delete-attachments", cleanupTimeout, func(ctx context.Context) error {
		var errs []error
		for _, u := range pending {
			if err := a.files.Delete(ctx, u); err != nil {
				errs = append(errs, err)
				continue
			}
			a.logger.Debug("🗑️ [Storage] Attachment deleted", "url", u)
		}
		return errors.Join(errs...)
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
