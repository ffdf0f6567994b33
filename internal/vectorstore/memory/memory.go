package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"docrag/internal/domain"
)

var _ domain.VectorIndex = (*Storage)(nil)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	rows      []domain.Chunk
}

// NewStorage returns an empty store. The dimension is fixed by the first Init.
func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension {
		return fmt.Errorf("%w: store holds %d-d vectors, got %d", domain.ErrDimensionMismatch, s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Delete(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = slices.DeleteFunc(s.rows, func(c domain.Chunk) bool { return c.DocID == docID })
	return nil
}

// Insert appends rows. The batch is rejected as a whole if any vector has
// the wrong size.
func (s *Storage) Insert(_ context.Context, rows []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if len(r.Embedding) != s.dimension {
			return fmt.Errorf("%w: row %s/%d has %d-d vector, store expects %d",
				domain.ErrDimensionMismatch, r.DocID, r.ChunkIndex, len(r.Embedding), s.dimension)
		}
	}
	for _, r := range rows {
		r.Embedding = slices.Clone(r.Embedding)
		s.rows = append(s.rows, r)
	}
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float32, topK int, filter domain.Filter) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	type scored struct {
		row   *domain.Chunk
		score float64
	}
	var candidates []scored
	for i := range s.rows {
		r := &s.rows[i]
		if !filter.Match(r.DocID, r.Metadata) {
			continue
		}
		candidates = append(candidates, scored{row: r, score: cosine(r.Embedding, vector)})
	}
	slices.SortStableFunc(candidates, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.row.DocID, b.row.DocID); c != 0 {
			return c
		}
		return cmp.Compare(a.row.ChunkIndex, b.row.ChunkIndex)
	})
	if topK > len(candidates) {
		topK = len(candidates)
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, c := range candidates[:topK] {
		results = append(results, domain.SearchResult{
			DocID:      c.row.DocID,
			ChunkIndex: c.row.ChunkIndex,
			Content:    c.row.Content,
			Metadata:   c.row.Metadata,
			Similarity: domain.Float64(c.score),
		})
	}
	return results, nil
}

// Rows returns a copy of the stored rows for docID in chunk order.
func (s *Storage) Rows(docID string) []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Chunk
	for _, r := range s.rows {
		if r.DocID == docID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b domain.Chunk) int { return cmp.Compare(a.ChunkIndex, b.ChunkIndex) })
	return out
}

func (s *Storage) Close() error { return nil }

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
