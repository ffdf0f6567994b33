// Package source extracts ordered page text from documents.
package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"docrag/internal/domain"
)

// Source yields the raw text of a document page by page.
type Source interface {
	// Name identifies the document; it becomes the chunk's metadata.source.
	Name() string
	// Pages returns every page in order with 1-based numbers.
	Pages(ctx context.Context) ([]domain.Page, error)
}

// Open picks an extractor from the file extension.
func Open(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return NewPDF(path), nil
	case ".txt", ".text", ".md":
		return NewText(path), nil
	default:
		return nil, fmt.Errorf("unsupported document type %q", filepath.Ext(path))
	}
}
