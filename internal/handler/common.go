package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/spatalkback/talkback/internal/database/repository"
	"github.com/spatalkback/talkback/internal/database/service"
	"github.com/spatalkback/talkback/internal/storage"
)

// handleServiceError maps service errors to HTTP responses
func handleServiceError(c *gin.Context, logger *slog.Logger, err error) {
	if verr, ok := service.AsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, verr.Fields)
		return
	}

	switch {
	case errors.Is(err, service.ErrCaptchaRequired):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Captcha is required"})
	case errors.Is(err, service.ErrInvalidCaptcha):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid captcha"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusForbidden, gin.H{"detail": "Invalid credentials"})
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, repository.ErrTokenNotFound), errors.Is(err, repository.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token is invalid or expired"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
	case errors.Is(err, repository.ErrPostNotFound), errors.Is(err, repository.ErrCommentNotFound), errors.Is(err, repository.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
	case errors.Is(err, service.ErrInvalidPage):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Invalid page."})
	default:
		logger.Error("❌ [Handler] Internal server error", "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
	}
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return 0, false
	}
	return uint(id), true
}

// getPagination reads page and page_size. A page that is not a positive
// integer answers 404 like a page past the end.
func getPagination(c *gin.Context) (int, int, bool) {
	page, pageSize := 1, 0

	if raw, ok := c.GetQuery("page"); ok {
		p, err := strconv.Atoi(raw)
		if err != nil || p <= 0 {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Invalid page."})
			return 0, 0, false
		}
		page = p
	}
	if ps, err := strconv.Atoi(c.Query("page_size")); err == nil && ps > 0 {
		pageSize = ps
	}

	return page, pageSize, true
}

// pageLink builds the absolute URL of another page of the current listing
func pageLink(c *gin.Context, page int) *string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	q := c.Request.URL.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     c.Request.Host,
		Path:     c.Request.URL.Path,
		RawQuery: q.Encode(),
	}
	link := u.String()
	return &link
}

// readUpload loads the multipart file under field and checks it against kind.
// A missing field yields nil without error.
func readUpload(c *gin.Context, field string, kind storage.Kind, maxSize int64) (*storage.Upload, error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fieldError(field, "The submitted data was not a file.")
	}
	if maxSize > 0 && header.Size > maxSize {
		return nil, fieldError(field, fmt.Sprintf("File too large. Maximum size is %d bytes.", maxSize))
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, header.Size))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	upload, err := storage.Inspect(bytes.NewReader(data), int64(len(data)), maxSize, kind)
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		if kind == storage.KindImage {
			return nil, fieldError(field, "Upload a valid image. Allowed formats: JPG, PNG, GIF.")
		}
		return nil, fieldError(field, "Only TXT files are allowed.")
	case errors.Is(err, storage.ErrFileTooLarge):
		return nil, fieldError(field, fmt.Sprintf("File too large. Maximum size is %d bytes.", maxSize))
	case err != nil:
		return nil, err
	}
	return upload, nil
}

func fieldError(field, msg string) error {
	return &service.ValidationError{Fields: map[string]string{field: msg}}
}

func isMultipart(c *gin.Context) bool {
	return c.ContentType() == gin.MIMEMultipartPOSTForm
}
