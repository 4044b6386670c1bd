package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFilename(t *testing.T) {
	got := NewFilename("家族写真.JPG")
	if !strings.HasSuffix(got, ".jpg") {
		t.Fatalf("extension not kept lowercase: %q", got)
	}
	if strings.Contains(got, "家族写真") {
		t.Fatalf("original name leaked into storage name: %q", got)
	}
	if got == NewFilename("家族写真.JPG") {
		t.Fatalf("generated names collide")
	}
	if ext := NewFilename("noext"); strings.Contains(ext, ".") {
		t.Fatalf("made up an extension: %q", ext)
	}
}

func TestFileStoreSaveURLDelete(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if fs.Dir() != dir {
		t.Fatalf("Dir() = %q, want %q", fs.Dir(), dir)
	}

	ctx := context.Background()
	body := []byte("jpeg bytes")
	if err := fs.Save(ctx, "a.jpg", strings.NewReader(string(body)), int64(len(body)), "image/jpeg"); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "a.jpg"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != string(body) {
		t.Fatalf("stored bytes = %q", got)
	}

	url, err := fs.URL(ctx, "a.jpg")
	if err != nil || url != "/uploads/a.jpg" {
		t.Fatalf("URL = %q, %v", url, err)
	}

	if err := fs.Delete(ctx, "a.jpg"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.jpg")); !os.IsNotExist(err) {
		t.Fatalf("file still present after delete")
	}
	// Deleting again is a no-op.
	if err := fs.Delete(ctx, "a.jpg"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestFileStoreRejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx := context.Background()
	if err := fs.Save(ctx, "../escape.jpg", strings.NewReader("x"), 1, "image/jpeg"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.jpg")); !os.IsNotExist(err) {
		t.Fatalf("file written outside the base directory")
	}
	if _, err := os.Stat(filepath.Join(dir, "uploads", "escape.jpg")); err != nil {
		t.Fatalf("sanitized file missing: %v", err)
	}

	url, err := fs.URL(ctx, "../../etc/passwd")
	if err != nil || url != "/uploads/passwd" {
		t.Fatalf("URL = %q, %v", url, err)
	}
}

func TestNewFileStoreRequiresPath(t *testing.T) {
	if _, err := NewFileStore("  "); err == nil {
		t.Fatalf("blank base path accepted")
	}
}
