package source

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"docrag/internal/domain"
)

// PDF extracts plain text from each page of a PDF file.
type PDF struct {
	path string
}

// NewPDF returns a Source reading the PDF at path.
func NewPDF(path string) *PDF { return &PDF{path: path} }

// Name returns the file path.
func (p *PDF) Name() string { return p.path }

// Pages reads every page's text. Pages without a content stream produce
// empty text rather than an error.
func (p *PDF) Pages(ctx context.Context) ([]domain.Page, error) {
	f, r, err := pdf.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", p.path, err)
	}
	defer f.Close()

	n := r.NumPage()
	pages := make([]domain.Page, 0, n)
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, domain.Page{Number: i})
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return nil, fmt.Errorf("read pdf %s page %d: %w", p.path, i, err)
		}
		pages = append(pages, domain.Page{Number: i, Text: text})
	}
	return pages, nil
}
