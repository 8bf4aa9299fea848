package storage

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/google/uuid"
)

var (
	ErrFileTooLarge    = errors.New("file is too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Kind is the attachment slot an upload is meant for
type Kind int

const (
	KindImage Kind = iota
	KindFile
)

var allowedTypes = map[Kind]map[string]string{
	KindImage: {
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/gif":  ".gif",
	},
	KindFile: {
		"text/plain": ".txt",
	},
}

// Upload is a validated attachment ready to be stored
type Upload struct {
	Reader      io.ReadSeeker
	Size        int64
	ContentType string
	Ext         string
}

// Inspect sniffs the content of r and checks it against the rules for kind.
// The reader is rewound before returning.
func Inspect(r io.ReadSeeker, size, maxSize int64, kind Kind) (*Upload, error) {
	if maxSize > 0 && size > maxSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, size, maxSize)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind upload: %w", err)
	}

	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(head[:n]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}
	ext, ok := allowedTypes[kind][mediaType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mediaType)
	}

	return &Upload{
		Reader:      r,
		Size:        size,
		ContentType: mediaType,
		Ext:         ext,
	}, nil
}

// ObjectName returns a fresh name below dir carrying the upload's extension
func (u *Upload) ObjectName(dir string) string {
	return path.Join(dir, uuid.NewString()+u.Ext)
}
