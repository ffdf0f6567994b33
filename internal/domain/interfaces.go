package domain

import "context"

// Page is one unit of extracted source text. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Metadata is attached to every persisted chunk.
type Metadata struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
}

// Chunk is a contiguous run of sentences from one page, persisted as one
// retrievable row keyed by (DocID, ChunkIndex).
type Chunk struct {
	DocID      string    `json:"doc_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Metadata   Metadata  `json:"metadata"`
	Embedding  []float32 `json:"-"`
}

// SearchResult is a ranked row returned by a VectorIndex. Similarity is nil
// when the index did not report a score.
type SearchResult struct {
	DocID      string   `json:"doc_id"`
	ChunkIndex int      `json:"chunk_index"`
	Content    string   `json:"content"`
	Metadata   Metadata `json:"metadata"`
	Similarity *float64 `json:"similarity,omitempty"`
}

// Filter is an equality constraint on row attributes applied during search.
// Zero values mean "no constraint".
type Filter struct {
	DocID  string `json:"doc_id,omitempty" yaml:"doc_id,omitempty"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	Page   int    `json:"page,omitempty" yaml:"page,omitempty"`
}

// IsZero reports whether the filter matches every row.
func (f Filter) IsZero() bool { return f == Filter{} }

// Match reports whether a row satisfies the filter.
func (f Filter) Match(docID string, md Metadata) bool {
	if f.DocID != "" && f.DocID != docID {
		return false
	}
	if f.Source != "" && f.Source != md.Source {
		return false
	}
	if f.Page != 0 && f.Page != md.Page {
		return false
	}
	return true
}

// Embedder maps a batch of strings to fixed-dimension vectors.
// Result[i] must correspond to texts[i].
type Embedder interface {
	Name() string
	Dimension() int
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex persists chunk rows and supports nearest-neighbour search.
type VectorIndex interface {
	// Init prepares the index for vectors of the given dimension and
	// returns ErrDimensionMismatch if it was created for another size.
	Init(ctx context.Context, dimension int) error
	// Delete removes every row with the given doc id.
	Delete(ctx context.Context, docID string) error
	// Insert appends rows in a single call.
	Insert(ctx context.Context, rows []Chunk) error
	// Search returns up to topK rows ranked by descending similarity.
	Search(ctx context.Context, query []float32, topK int, filter Filter) ([]SearchResult, error)
	Close() error
}

// Float64 returns a pointer to v, for building SearchResult values.
func Float64(v float64) *float64 { return &v }
