package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"docrag/internal/domain"
)

var _ domain.VectorIndex = (*Storage)(nil)

// pointNamespace seeds deterministic point ids derived from (doc_id, chunk_index).
var pointNamespace = uuid.MustParse("6f1c8f0e-4c2b-4d8e-9a57-2f0b7d1c9e31")

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection if missing.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// PointID returns the stable point id for a chunk.
func PointID(docID string, chunkIndex int) string {
	return uuid.NewSHA1(pointNamespace, fmt.Appendf(nil, "%s:%d", docID, chunkIndex)).String()
}

// Init creates the collection when it does not exist and otherwise checks
// that its vector size matches dimension.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	status, err := s.do(ctx, http.MethodGet, s.collectionURL(""), nil, &info)
	if err != nil && status != http.StatusNotFound {
		return err
	}
	if status == http.StatusNotFound {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dimension,
				"distance": "Cosine",
			},
		}
		_, err := s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil)
		return err
	}
	if got := info.Result.Config.Params.Vectors.Size; got != dimension {
		return fmt.Errorf("%w: collection %s has size %d, embedder produces %d",
			domain.ErrDimensionMismatch, s.collection, got, dimension)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, docID string) error {
	body := map[string]any{"filter": buildFilter(domain.Filter{DocID: docID})}
	_, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/delete?wait=true"), body, nil)
	return err
}

func (s *Storage) Insert(ctx context.Context, rows []domain.Chunk) error {
	if len(rows) == 0 {
		return nil
	}
	points := make([]map[string]any, len(rows))
	for i, r := range rows {
		points[i] = map[string]any{
			"id":     PointID(r.DocID, r.ChunkIndex),
			"vector": r.Embedding,
			"payload": map[string]any{
				"doc_id":      r.DocID,
				"chunk_index": r.ChunkIndex,
				"content":     r.Content,
				"metadata":    r.Metadata,
			},
		}
	}
	body := map[string]any{"points": points}
	_, err := s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil)
	return err
}

type searchHit struct {
	Score   float64 `json:"score"`
	Payload struct {
		DocID      string          `json:"doc_id"`
		ChunkIndex int             `json:"chunk_index"`
		Content    string          `json:"content"`
		Metadata   domain.Metadata `json:"metadata"`
	} `json:"payload"`
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int, filter domain.Filter) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if !filter.IsZero() {
		req["filter"] = buildFilter(filter)
	}
	var resp struct {
		Result []searchHit `json:"result"`
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{
			DocID:      r.Payload.DocID,
			ChunkIndex: r.Payload.ChunkIndex,
			Content:    r.Payload.Content,
			Metadata:   r.Payload.Metadata,
			Similarity: domain.Float64(r.Score),
		})
	}
	return results, nil
}

func (s *Storage) Close() error { return nil }

func buildFilter(f domain.Filter) map[string]any {
	var must []map[string]any
	match := func(key string, value any) {
		must = append(must, map[string]any{"key": key, "match": map[string]any{"value": value}})
	}
	if f.DocID != "" {
		match("doc_id", f.DocID)
	}
	if f.Source != "" {
		match("metadata.source", f.Source)
	}
	if f.Page != 0 {
		match("metadata.page", f.Page)
	}
	return map[string]any{"must": must}
}

func (s *Storage) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

// do sends a JSON request and decodes the response into out when non-nil.
// The HTTP status is returned alongside any error.
func (s *Storage) do(ctx context.Context, method, url string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("qdrant %s %s failed: %s %s", method, url, resp.Status, bytes.TrimSpace(msg))
	}
	if out != nil {
		return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode, nil
}
