package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PhotoStore persists uploaded photograph files. Implementations: local
// directory (default) and MinIO/S3 for managed deployments.
type PhotoStore interface {
	Save(ctx context.Context, filename string, r io.Reader, size int64, contentType string) error
	URL(ctx context.Context, filename string) (string, error)
	Delete(ctx context.Context, filename string) error
}

// NewFilename generates a storage filename: a fresh UUID keeping the
// original extension.
func NewFilename(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return uuid.NewString() + ext
}

// FileStore saves photos to disk under a base directory and serves them as
// static files under /uploads/.
type FileStore struct {
	basePath string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// Dir returns the directory static file serving reads from.
func (f *FileStore) Dir() string {
	return f.basePath
}

// Save writes an uploaded photo under its generated filename.
func (f *FileStore) Save(_ context.Context, filename string, r io.Reader, _ int64, _ string) error {
	target := filepath.Join(f.basePath, safeFilename(filename))
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// URL returns the static path the file is served from.
func (f *FileStore) URL(_ context.Context, filename string) (string, error) {
	return "/uploads/" + safeFilename(filename), nil
}

// Delete removes the stored file. A missing file is not an error.
func (f *FileStore) Delete(_ context.Context, filename string) error {
	target := filepath.Join(f.basePath, safeFilename(filename))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func safeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	name = strings.TrimSpace(name)
	if name == "" {
		return "photo"
	}
	return name
}

// Satisfied at compile time.
var (
	_ PhotoStore = (*FileStore)(nil)
	_ PhotoStore = (*MinioStore)(nil)
)

// presignExpiry bounds how long a generated photo URL stays valid on the
// MinIO backend.
const presignExpiry = 15 * time.Minute
