package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"NewsDigest/internal/ports"
)

// FileStore writes each digest as <title>.html plus a Markdown rendition next to it.
type FileStore struct {
	dir       string
	converter *md.Converter
	logger    *slog.Logger
}

var _ ports.DocumentStore = (*FileStore)(nil)

// NewFileStore stores documents under dir, creating it on first save.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		dir:       dir,
		converter: md.NewConverter("", true, nil),
		logger:    logger.With("component", "documents"),
	}
}

// Save overwrites any document with the same title and returns the HTML path.
func (s *FileStore) Save(ctx context.Context, title, html string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create document dir: %w", err)
	}

	base := filepath.Join(s.dir, fileName(title))
	htmlPath := base + ".html"
	if _, err := os.Stat(htmlPath); err == nil {
		s.logger.Info("replacing existing document", "title", title)
	}

	if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("write html document: %w", err)
	}

	markdown, err := s.converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert document to markdown: %w", err)
	}
	if err := os.WriteFile(base+".md", []byte(markdown+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write markdown document: %w", err)
	}

	s.logger.Info("saved document", "title", title, "path", htmlPath)
	return htmlPath, nil
}

var unsafeName = strings.NewReplacer("/", "-", "\\", "-", ":", "-", "*", "", "?", "", "\"", "", "<", "", ">", "", "|", "")

func fileName(title string) string {
	name := strings.TrimSpace(unsafeName.Replace(title))
	if name == "" {
		return "document"
	}
	return name
}
