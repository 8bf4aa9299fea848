package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spatalkback/talkback/internal/config"
	"github.com/spatalkback/talkback/internal/logger"
)

// 1x1 transparent PNG
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func TestLocalStorage_SaveAndDelete(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(root, "/media/")
	require.NoError(t, err)

	ctx := context.Background()
	url, err := s.Save(ctx, "post_files/note.txt", strings.NewReader("hello"), 5, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "/media/post_files/note.txt", url)

	data, err := os.ReadFile(filepath.Join(root, "post_files", "note.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, s.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(root, "post_files", "note.txt"))
	assert.True(t, os.IsNotExist(err))

	// Deleting again is harmless
	assert.NoError(t, s.Delete(ctx, url))
}

func TestLocalStorage_StaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(filepath.Join(root, "media"), "/media")
	require.NoError(t, err)

	ctx := context.Background()
	url, err := s.Save(ctx, "../../escape.txt", strings.NewReader("x"), 1, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "/media/escape.txt", url)
	assert.FileExists(t, filepath.Join(root, "media", "escape.txt"))

	_, err = s.Save(ctx, "..", strings.NewReader("x"), 1, "text/plain")
	assert.ErrorIs(t, err, ErrOutsideRoot)

	assert.ErrorIs(t, s.Delete(ctx, "https://elsewhere.example.com/a.txt"), ErrOutsideRoot)
}

func TestInspect(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		size     int64
		max      int64
		kind     Kind
		wantType string
		wantExt  string
		wantErr  error
	}{
		{
			name:     "png image",
			content:  pngBytes,
			kind:     KindImage,
			wantType: "image/png",
			wantExt:  ".png",
		},
		{
			name:     "gif image",
			content:  []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"),
			kind:     KindImage,
			wantType: "image/gif",
			wantExt:  ".gif",
		},
		{
			name:     "text file",
			content:  []byte("plain text attachment"),
			kind:     KindFile,
			wantType: "text/plain",
			wantExt:  ".txt",
		},
		{
			name:    "text is not an image",
			content: []byte("plain text"),
			kind:    KindImage,
			wantErr: ErrUnsupportedType,
		},
		{
			name:    "image is not a file attachment",
			content: pngBytes,
			kind:    KindFile,
			wantErr: ErrUnsupportedType,
		},
		{
			name:    "too large",
			content: []byte("plain text"),
			size:    100,
			max:     10,
			kind:    KindFile,
			wantErr: ErrFileTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := tt.size
			if size == 0 {
				size = int64(len(tt.content))
			}
			r := bytes.NewReader(tt.content)

			upload, err := Inspect(r, size, tt.max, tt.kind)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, upload.ContentType)
			assert.Equal(t, tt.wantExt, upload.Ext)

			// reader is rewound
			pos, err := r.Seek(0, 1)
			require.NoError(t, err)
			assert.Zero(t, pos)

			name := upload.ObjectName("post_images")
			assert.True(t, strings.HasPrefix(name, "post_images/"))
			assert.True(t, strings.HasSuffix(name, tt.wantExt))
		})
	}
}

func TestSplitObjectURL(t *testing.T) {
	bucket, object, ok := splitObjectURL("http://localhost:9000/talkback/post_images/a.png")
	require.True(t, ok)
	assert.Equal(t, "talkback", bucket)
	assert.Equal(t, "post_images/a.png", object)

	_, _, ok = splitObjectURL("http://localhost:9000/talkback")
	assert.False(t, ok)

	_, _, ok = splitObjectURL("")
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	cfg := &config.Config{StorageDriver: DriverLocal, UploadDir: t.TempDir(), MediaURL: "/media"}
	s, err := New(cfg, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	cfg.StorageDriver = "ftp"
	_, err = New(cfg, logger.Discard())
	assert.Error(t, err)
}
