package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docrag/internal/chunker"
	"docrag/internal/config"
	"docrag/internal/domain"
	"docrag/internal/tokenizer"
	"docrag/internal/vectorstore/memory"
)

func newIngestor(emb domain.Embedder, index domain.VectorIndex, cfg config.PipelineConfig) *Ingestor {
	return NewIngestor(perSentence(), emb, index, cfg, zap.NewNop())
}

func TestIngest_BatchesEmbeddingsInOrder(t *testing.T) {
	emb := newCountingEmbedder()
	index := memory.NewStorage()
	in := newIngestor(emb, index, config.PipelineConfig{EmbedBatchSize: 100, InsertBatchSize: 200})

	src := fakeSource{name: "book.pdf", pages: []domain.Page{{Number: 1, Text: sentences(250, "vitamins")}}}
	n, err := in.Ingest(context.Background(), src, "book")
	require.NoError(t, err)
	assert.Equal(t, 250, n)
	assert.Equal(t, []int{100, 100, 50}, emb.calls())

	rows := index.Rows("book")
	require.Len(t, rows, 250)
	want, err := emb.inner.EmbedBatch(context.Background(), []string{rows[137].Content})
	require.NoError(t, err)
	assert.Equal(t, want[0], rows[137].Embedding)
	assert.Equal(t, "Sentence 137 about vitamins.", rows[137].Content)
}

func TestIngest_ConcurrentBatchesKeepOrder(t *testing.T) {
	emb := newCountingEmbedder()
	index := memory.NewStorage()
	in := newIngestor(emb, index, config.PipelineConfig{EmbedBatchSize: 7, InsertBatchSize: 20, EmbedConcurrency: 4})

	src := fakeSource{name: "a.txt", pages: []domain.Page{{Number: 1, Text: sentences(95, "protein")}}}
	n, err := in.Ingest(context.Background(), src, "a")
	require.NoError(t, err)
	require.Equal(t, 95, n)
	assert.Len(t, emb.calls(), 14)

	for i, r := range index.Rows("a") {
		assert.Equal(t, fmt.Sprintf("Sentence %d about protein.", i), r.Content)
		want, _ := emb.inner.EmbedBatch(context.Background(), []string{r.Content})
		assert.Equal(t, want[0], r.Embedding, "row %d", i)
	}
}

func TestIngest_IdempotentAndContiguous(t *testing.T) {
	index := memory.NewStorage()
	in := newIngestor(newCountingEmbedder(), index, config.PipelineConfig{EmbedBatchSize: 3, InsertBatchSize: 4})
	src := fakeSource{name: "doc.pdf", pages: []domain.Page{
		{Number: 1, Text: sentences(5, "saliva")},
		{Number: 2, Text: "   \n  "},
		{Number: 3, Text: sentences(4, "pellagra")},
	}}
	ctx := context.Background()

	n1, err := in.Ingest(ctx, src, "doc")
	require.NoError(t, err)
	first := index.Rows("doc")

	n2, err := in.Ingest(ctx, src, "doc")
	require.NoError(t, err)
	second := index.Rows("doc")

	assert.Equal(t, 9, n1)
	assert.Equal(t, n1, n2)
	assert.Equal(t, first, second)
	for i, r := range second {
		assert.Equal(t, i, r.ChunkIndex)
		assert.Equal(t, "doc.pdf", r.Metadata.Source)
	}
	assert.Equal(t, 1, second[4].Metadata.Page)
	assert.Equal(t, 3, second[5].Metadata.Page, "empty page 2 is skipped")
}

func TestIngest_LeavesOtherDocuments(t *testing.T) {
	index := memory.NewStorage()
	in := newIngestor(newCountingEmbedder(), index, config.PipelineConfig{EmbedBatchSize: 10, InsertBatchSize: 10})
	ctx := context.Background()

	_, err := in.Ingest(ctx, fakeSource{name: "a.pdf", pages: []domain.Page{{Number: 1, Text: sentences(3, "a")}}}, "a")
	require.NoError(t, err)
	_, err = in.Ingest(ctx, fakeSource{name: "b.pdf", pages: []domain.Page{{Number: 1, Text: sentences(2, "b")}}}, "b")
	require.NoError(t, err)
	_, err = in.Ingest(ctx, fakeSource{name: "a.pdf", pages: []domain.Page{{Number: 1, Text: sentences(1, "a")}}}, "a")
	require.NoError(t, err)

	assert.Len(t, index.Rows("a"), 1)
	assert.Len(t, index.Rows("b"), 2)
}

func TestIngest_ExtractionFailureKeepsPriorRows(t *testing.T) {
	index := memory.NewStorage()
	in := newIngestor(newCountingEmbedder(), index, config.PipelineConfig{EmbedBatchSize: 10, InsertBatchSize: 10})
	ctx := context.Background()

	_, err := in.Ingest(ctx, fakeSource{name: "a.pdf", pages: []domain.Page{{Number: 1, Text: sentences(4, "a")}}}, "a")
	require.NoError(t, err)

	_, err = in.Ingest(ctx, fakeSource{name: "a.pdf", err: errors.New("corrupt xref table")}, "a")
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageExtraction, se.Stage)
	assert.Equal(t, "a", se.DocID)
	assert.Contains(t, err.Error(), "corrupt xref table")
	assert.Len(t, index.Rows("a"), 4)
}

func TestIngest_EmbeddingFailureReportsStage(t *testing.T) {
	emb := newCountingEmbedder()
	emb.failOn = 2
	index := memory.NewStorage()
	in := newIngestor(emb, index, config.PipelineConfig{EmbedBatchSize: 2, InsertBatchSize: 10})

	_, err := in.Ingest(context.Background(), fakeSource{name: "a.pdf", pages: []domain.Page{{Number: 1, Text: sentences(5, "a")}}}, "a")
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageEmbedding, se.Stage)
	assert.Empty(t, index.Rows("a"), "nothing is inserted when embedding fails")
}

func TestIngest_Validation(t *testing.T) {
	ctx := context.Background()
	src := fakeSource{name: "a.pdf", pages: []domain.Page{{Number: 1, Text: sentences(2, "a")}}}

	in := newIngestor(newCountingEmbedder(), memory.NewStorage(), config.PipelineConfig{})
	_, err := in.Ingest(ctx, src, "")
	assert.ErrorIs(t, err, domain.ErrEmptyDocID)

	index := memory.NewStorage()
	require.NoError(t, index.Init(ctx, 8))
	in = newIngestor(newCountingEmbedder(), index, config.PipelineConfig{})
	_, err = in.Ingest(ctx, src, "a")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageValidation, se.Stage)
}

func TestIngest_ShortChunksDropped(t *testing.T) {
	index := memory.NewStorage()
	ch := chunker.NewSentenceChunker(tokenizer.Words, chunker.Options{SentencesPerChunk: 2, Overlap: 1, MinTokens: 5})
	in := NewIngestor(ch, newCountingEmbedder(), index, config.PipelineConfig{}, nil)

	n, err := in.Ingest(context.Background(), fakeSource{name: "a.txt", pages: []domain.Page{{Number: 1, Text: "Tiny. Also tiny."}}}, "a")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, index.Rows("a"))
}

func TestIngest_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := newIngestor(newCountingEmbedder(), memory.NewStorage(), config.PipelineConfig{})
	_, err := in.Ingest(ctx, fakeSource{name: "a.txt", pages: []domain.Page{{Number: 1, Text: sentences(3, "a")}}}, "a")
	assert.ErrorIs(t, err, context.Canceled)
}
