package document

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveWritesHTMLAndMarkdown(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewFileStore(dir, nil)

	html := `<h1>Noticias GCP - 2025-10-06</h1><h2>Noticias Security</h2><p><b><a href="https://example.com/iam">New IAM controls</a></b></p>`
	path, err := store.Save(context.Background(), "Noticias GCP - 2025-10-06", html)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if path != filepath.Join(dir, "Noticias GCP - 2025-10-06.html") {
		t.Fatalf("unexpected path: %s", path)
	}

	markdown, err := os.ReadFile(filepath.Join(dir, "Noticias GCP - 2025-10-06.md"))
	if err != nil {
		t.Fatalf("read markdown: %v", err)
	}
	if !strings.Contains(string(markdown), "[New IAM controls](https://example.com/iam)") {
		t.Fatalf("markdown misses the article link: %s", markdown)
	}
}

func TestSaveReplacesSameTitle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewFileStore(dir, nil)
	ctx := context.Background()

	if _, err := store.Save(ctx, "Daily", "<p>first</p>"); err != nil {
		t.Fatalf("first save: %v", err)
	}
	path, err := store.Save(ctx, "Daily", "<p>second</p>")
	if err != nil {
		t.Fatalf("second save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read html: %v", err)
	}
	if string(raw) != "<p>second</p>" {
		t.Fatalf("document not replaced: %s", raw)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Fatalf("expected one html and one md file, got %d entries", len(entries))
	}
}

func TestFileNameStripsSeparators(t *testing.T) {
	t.Parallel()

	if got := fileName("a/b: c?"); got != "a-b- c" {
		t.Fatalf("unexpected file name: %q", got)
	}
	if got := fileName("  "); got != "document" {
		t.Fatalf("unexpected fallback name: %q", got)
	}
}
