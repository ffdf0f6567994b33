package chromem

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"docrag/internal/domain"
)

var _ domain.VectorIndex = (*Storage)(nil)

const (
	keyDocID      = "doc_id"
	keyChunkIndex = "chunk_index"
	keySource     = "source"
	keyPage       = "page"
)

// Storage keeps chunks in an embedded chromem-go collection persisted on disk.
type Storage struct {
	db         *chromem.DB
	collection *chromem.Collection

	mu        sync.Mutex
	dimension int
}

// NewStorage opens (or creates) the database at path. An empty path keeps
// everything in memory.
func NewStorage(path, collection string, compress bool) (*Storage, error) {
	var (
		db  *chromem.DB
		err error
	)
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem db %s: %w", path, err)
		}
	}
	metadata := map[string]string{"hnsw:space": "cosine"}
	c, err := db.GetOrCreateCollection(collection, metadata, nil)
	if err != nil {
		return nil, fmt.Errorf("get collection %s: %w", collection, err)
	}
	return &Storage{db: db, collection: c}, nil
}

// Init records the dimension. A non-empty collection is probed with a
// vector of that size; chromem rejects vectors of a different length.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension {
		return fmt.Errorf("%w: index has %d, got %d", domain.ErrDimensionMismatch, s.dimension, dimension)
	}
	if s.collection.Count() > 0 {
		probe := make([]float32, dimension)
		probe[0] = 1
		if _, err := s.collection.QueryEmbedding(ctx, probe, 1, nil, nil); err != nil {
			return fmt.Errorf("%w: collection %s rejects %d-dim vectors: %v",
				domain.ErrDimensionMismatch, s.collection.Name, dimension, err)
		}
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Delete(ctx context.Context, docID string) error {
	if err := s.collection.Delete(ctx, map[string]string{keyDocID: docID}, nil); err != nil {
		return fmt.Errorf("delete %s: %w", docID, err)
	}
	return nil
}

func (s *Storage) Insert(ctx context.Context, rows []domain.Chunk) error {
	if len(rows) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(rows))
	for i, r := range rows {
		if s.dimension != 0 && len(r.Embedding) != s.dimension {
			return fmt.Errorf("%w: row %s/%d has %d, want %d",
				domain.ErrDimensionMismatch, r.DocID, r.ChunkIndex, len(r.Embedding), s.dimension)
		}
		docs[i] = chromem.Document{
			ID:        rowID(r.DocID, r.ChunkIndex),
			Metadata:  toMetadata(r),
			Embedding: slices.Clone(r.Embedding),
			Content:   r.Content,
		}
	}
	return s.collection.AddDocuments(ctx, docs, 1)
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int, filter domain.Filter) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	// chromem refuses n larger than the collection.
	n := min(topK, s.collection.Count())
	if n == 0 {
		return nil, nil
	}
	res, err := s.collection.QueryEmbedding(ctx, vector, n, whereClause(filter), nil)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	out := make([]domain.SearchResult, 0, len(res))
	for _, r := range res {
		idx, _ := strconv.Atoi(r.Metadata[keyChunkIndex])
		page, _ := strconv.Atoi(r.Metadata[keyPage])
		out = append(out, domain.SearchResult{
			DocID:      r.Metadata[keyDocID],
			ChunkIndex: idx,
			Content:    r.Content,
			Metadata:   domain.Metadata{Source: r.Metadata[keySource], Page: page},
			Similarity: domain.Float64(float64(r.Similarity)),
		})
	}
	return out, nil
}

// Count returns the number of stored rows.
func (s *Storage) Count() int { return s.collection.Count() }

// Close is a no-op; the persistent DB writes through on every change.
func (s *Storage) Close() error { return nil }

func rowID(docID string, idx int) string {
	return docID + ":" + strconv.Itoa(idx)
}

func toMetadata(r domain.Chunk) map[string]string {
	return map[string]string{
		keyDocID:      r.DocID,
		keyChunkIndex: strconv.Itoa(r.ChunkIndex),
		keySource:     r.Metadata.Source,
		keyPage:       strconv.Itoa(r.Metadata.Page),
	}
}

func whereClause(f domain.Filter) map[string]string {
	if f.IsZero() {
		return nil
	}
	where := map[string]string{}
	if f.DocID != "" {
		where[keyDocID] = f.DocID
	}
	if f.Source != "" {
		where[keySource] = f.Source
	}
	if f.Page != 0 {
		where[keyPage] = strconv.Itoa(f.Page)
	}
	return where
}
