package pdf

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pdfreader "github.com/ledongthuc/pdf"
)

// findTTF looks for any TrueType font installed on the host. Rendering needs
// a real font file, so the layout tests skip when none is available.
func findTTF(t *testing.T) string {
	t.Helper()
	var found string
	for _, root := range []string{"/usr/share/fonts", "/usr/local/share/fonts", "/Library/Fonts", "/System/Library/Fonts"} {
		filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || found != "" {
				return filepath.SkipAll
			}
			if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".ttf") {
				found = path
				return filepath.SkipAll
			}
			return nil
		})
		if found != "" {
			return found
		}
	}
	t.Skip("no TTF font installed")
	return ""
}

func TestNewRendererValidation(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewRenderer("", "font.ttf"); err == nil {
		t.Fatalf("blank output dir accepted")
	}
	if _, err := NewRenderer(dir, ""); err == nil {
		t.Fatalf("blank font path accepted")
	}
	if _, err := NewRenderer(dir, filepath.Join(dir, "missing.ttf")); err == nil {
		t.Fatalf("missing font file accepted")
	}
}

func TestRenderBooklet(t *testing.T) {
	font := findTTF(t)
	dir := t.TempDir()
	r, err := NewRenderer(dir, font)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	if r.Dir() != dir {
		t.Fatalf("Dir() = %q", r.Dir())
	}

	b := Booklet{
		Title:     "One Life",
		UserName:  "Taro",
		BirthYear: 1950,
		Content:   strings.Repeat("A quiet childhood near the sea.\n", 80),
		Summary:   "A life by the water.",
		Events: []Event{
			{Year: 1950, Month: 4, Title: "Born"},
			{Year: 1968, Title: "First job", Text: "Joined the shipyard"},
		},
	}
	filename, pages, err := r.Render(b)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasSuffix(filename, ".pdf") {
		t.Fatalf("filename = %q", filename)
	}
	// Cover, repeated narrative spilling past one page, event table.
	if pages < 4 {
		t.Fatalf("pages = %d, want at least 4", pages)
	}

	path := filepath.Join(dir, filename)
	f, reader, err := pdfreader.Open(path)
	if err != nil {
		t.Fatalf("open rendered pdf: %v", err)
	}
	defer f.Close()
	if reader.NumPage() != pages {
		t.Fatalf("parsed %d pages, renderer reported %d", reader.NumPage(), pages)
	}
}

func TestRenderSkipsMissingPhotos(t *testing.T) {
	font := findTTF(t)
	dir := t.TempDir()
	r, err := NewRenderer(dir, font)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	b := Booklet{
		UserName: "Taro",
		Content:  "short",
		Photos: []PhotoItem{
			{Path: filepath.Join(dir, "gone.jpg"), Caption: "missing"},
		},
	}
	basePages := renderPages(t, r, Booklet{UserName: "Taro", Content: "short"})
	pages := renderPages(t, r, b)
	if pages != basePages {
		t.Fatalf("missing photo added pages: %d vs %d", pages, basePages)
	}
}

func renderPages(t *testing.T, r *Renderer, b Booklet) int {
	t.Helper()
	filename, pages, err := r.Render(b)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, err := os.Stat(filepath.Join(r.Dir(), filename)); err != nil {
		t.Fatalf("rendered file missing: %v", err)
	}
	return pages
}
