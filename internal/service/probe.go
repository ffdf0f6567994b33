package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"docrag/internal/domain"
)

// DefaultTopK is used when a query asks for zero results.
const DefaultTopK = 3

// Probe answers retrieval queries against an index. It never mutates it.
type Probe struct {
	embedder domain.Embedder
	index    domain.VectorIndex
	topK     int
	log      *zap.Logger
}

func NewProbe(emb domain.Embedder, index domain.VectorIndex, topK int, log *zap.Logger) *Probe {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Probe{embedder: emb, index: index, topK: topK, log: log}
}

// Query embeds text and returns up to topK rows matching filter, most
// similar first. No match yields an empty slice.
func (p *Probe) Query(ctx context.Context, text string, topK int, filter domain.Filter) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = p.topK
	}
	vecs, err := p.embedder.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}
	res, err := p.index.Search(ctx, vecs[0], topK, filter)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	p.log.Debug("query answered", zap.String("query", text), zap.Int("results", len(res)))
	if res == nil {
		res = []domain.SearchResult{}
	}
	return res, nil
}

// PreviewWidth bounds the preview printed under each result.
const PreviewWidth = 160

const placeholder = " [...]"

// FormatResult renders a ranked result as a header line and an indented
// preview line.
func FormatResult(rank int, r domain.SearchResult) string {
	page := "?"
	if r.Metadata.Page > 0 {
		page = strconv.Itoa(r.Metadata.Page)
	}
	sim := "?"
	if r.Similarity != nil {
		sim = fmt.Sprintf("%.3f", *r.Similarity)
	}
	return fmt.Sprintf("  [%d] page %s  sim=%s  chunk_index=%d\n      %s",
		rank, page, sim, r.ChunkIndex, Shorten(r.Content, PreviewWidth))
}

// Shorten collapses whitespace and, if the text is still wider than width
// runes, cuts it at a word boundary and appends " [...]".
func Shorten(text string, width int) string {
	words := strings.Fields(text)
	joined := strings.Join(words, " ")
	if utf8.RuneCountInString(joined) <= width {
		return joined
	}
	budget := width - utf8.RuneCountInString(placeholder)
	var b strings.Builder
	n := 0
	for _, w := range words {
		wl := utf8.RuneCountInString(w)
		if n > 0 {
			wl++
		}
		if n+wl > budget {
			break
		}
		if n > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
		n += wl
	}
	if n == 0 {
		return strings.TrimSpace(placeholder)
	}
	return b.String() + placeholder
}
