package source

import (
	"context"
	"fmt"
	"os"
	"strings"

	"docrag/internal/domain"
)

// PageBreak separates pages in plain-text documents, as emitted by pdftotext.
const PageBreak = "\f"

// Text reads a plain-text file whose pages are separated by form feeds.
// A file without form feeds is a single page.
type Text struct {
	path string
}

// NewText returns a Source reading the text file at path.
func NewText(path string) *Text { return &Text{path: path} }

// Name returns the file path.
func (t *Text) Name() string { return t.path }

// Pages splits the file on PageBreak.
func (t *Text) Pages(ctx context.Context) ([]domain.Page, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parts := strings.Split(string(data), PageBreak)
	pages := make([]domain.Page, len(parts))
	for i, p := range parts {
		pages[i] = domain.Page{Number: i + 1, Text: p}
	}
	return pages, nil
}
