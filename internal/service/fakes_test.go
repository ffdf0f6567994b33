package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"docrag/internal/chunker"
	"docrag/internal/domain"
	"docrag/internal/embedding/hashing"
	"docrag/internal/tokenizer"
)

type fakeSource struct {
	name  string
	pages []domain.Page
	err   error
}

func (f fakeSource) Name() string { return f.name }

func (f fakeSource) Pages(context.Context) ([]domain.Page, error) {
	return f.pages, f.err
}

// countingEmbedder records batch sizes and can fail on a chosen call.
type countingEmbedder struct {
	inner  *hashing.Embedder
	mu     sync.Mutex
	sizes  []int
	failOn int // 1-based call number; zero never fails
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{inner: hashing.NewEmbedder(256)}
}

func (e *countingEmbedder) Name() string   { return "counting" }
func (e *countingEmbedder) Dimension() int { return e.inner.Dimension() }

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.sizes = append(e.sizes, len(texts))
	call := len(e.sizes)
	e.mu.Unlock()
	if e.failOn != 0 && call == e.failOn {
		return nil, errors.New("embedding service unavailable")
	}
	return e.inner.EmbedBatch(ctx, texts)
}

func (e *countingEmbedder) calls() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.sizes...)
}

// sentences builds a page of n distinct sentences.
func sentences(n int, topic string) string {
	var b strings.Builder
	for i := range n {
		fmt.Fprintf(&b, "Sentence %d about %s. ", i, topic)
	}
	return b.String()
}

// perSentence emits one chunk per sentence with no size floor.
func perSentence() *chunker.SentenceChunker {
	return chunker.NewSentenceChunker(tokenizer.Words, chunker.Options{SentencesPerChunk: 1})
}
