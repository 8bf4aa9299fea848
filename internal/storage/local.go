package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for names or URLs that escape the upload directory
var ErrOutsideRoot = errors.New("path escapes storage root")

// LocalStorage writes attachments below a directory served at baseURL
type LocalStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage creates the root directory if needed
func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStorage{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Root returns the directory attachments are written to
func (s *LocalStorage) Root() string {
	return s.root
}

func (s *LocalStorage) Save(ctx context.Context, name string, r io.Reader, size int64, _ string) (string, error) {
	path, rel, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if size >= 0 {
		r = io.LimitReader(r, size)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return s.baseURL + "/" + rel, nil
}

// Delete removes the file behind url. Unknown files are not an error.
func (s *LocalStorage) Delete(_ context.Context, url string) error {
	name, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, url)
	}
	path, _, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// resolve maps name onto the root. Rooting it first makes ".." segments collapse inside.
func (s *LocalStorage) resolve(name string) (path, rel string, err error) {
	clean := filepath.Clean(string(filepath.Separator) + filepath.FromSlash(name))
	if clean == string(filepath.Separator) {
		return "", "", fmt.Errorf("%w: %q", ErrOutsideRoot, name)
	}
	rel = filepath.ToSlash(strings.TrimPrefix(clean, string(filepath.Separator)))
	return filepath.Join(s.root, clean), rel, nil
}
