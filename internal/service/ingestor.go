package service

import (
	"context"
	"fmt"
	"iter"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docrag/internal/chunker"
	"docrag/internal/config"
	"docrag/internal/domain"
	"docrag/internal/source"
)

// Chunker turns normalized page text into chunk contents.
type Chunker interface {
	ChunkText(text string) iter.Seq[string]
}

// Ingestor runs extract, delete, chunk, embed and insert for one document.
type Ingestor struct {
	chunker  Chunker
	embedder domain.Embedder
	index    domain.VectorIndex
	cfg      config.PipelineConfig
	log      *zap.Logger
}

func NewIngestor(ch Chunker, emb domain.Embedder, index domain.VectorIndex, cfg config.PipelineConfig, log *zap.Logger) *Ingestor {
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 100
	}
	if cfg.InsertBatchSize <= 0 {
		cfg.InsertBatchSize = 200
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingestor{chunker: ch, embedder: emb, index: index, cfg: cfg, log: log}
}

// Ingest replaces every row of docID with freshly built chunks of src and
// returns how many were persisted. Re-running with the same inputs leaves
// the index in the same state.
//
// Pages are extracted before anything is deleted, so an unreadable source
// keeps the previous rows. Any later failure leaves docID partially or
// fully removed; re-running to completion repairs it.
func (in *Ingestor) Ingest(ctx context.Context, src source.Source, docID string) (int, error) {
	if docID == "" {
		return 0, stageErr(StageValidation, docID, domain.ErrEmptyDocID)
	}
	if err := in.index.Init(ctx, in.embedder.Dimension()); err != nil {
		return 0, stageErr(StageValidation, docID, err)
	}
	log := in.log.With(zap.String("doc_id", docID), zap.String("source", src.Name()))

	pages, err := src.Pages(ctx)
	if err != nil {
		return 0, stageErr(StageExtraction, docID, err)
	}
	log.Info("pages extracted", zap.Int("pages", len(pages)))

	if err := in.index.Delete(ctx, docID); err != nil {
		return 0, stageErr(StagePersistence, docID, fmt.Errorf("delete: %w", err))
	}

	rows, err := in.buildChunks(ctx, src.Name(), docID, pages, log)
	if err != nil {
		return 0, stageErr(StageChunking, docID, err)
	}
	log.Info("chunks built", zap.Int("chunks", len(rows)))
	if len(rows) == 0 {
		return 0, nil
	}

	if err := in.embed(ctx, rows, log); err != nil {
		return 0, stageErr(StageEmbedding, docID, err)
	}

	for start := 0; start < len(rows); start += in.cfg.InsertBatchSize {
		end := min(start+in.cfg.InsertBatchSize, len(rows))
		if err := in.index.Insert(ctx, rows[start:end]); err != nil {
			return 0, stageErr(StagePersistence, docID, fmt.Errorf("insert rows %d-%d: %w", start, end-1, err))
		}
		log.Debug("batch inserted", zap.Int("from", start), zap.Int("to", end))
	}
	log.Info("document ingested", zap.Int("chunks", len(rows)), zap.String("embedder", in.embedder.Name()))
	return len(rows), nil
}

func (in *Ingestor) buildChunks(ctx context.Context, name, docID string, pages []domain.Page, log *zap.Logger) ([]domain.Chunk, error) {
	var rows []domain.Chunk
	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := chunker.Normalize(p.Text)
		if text == "" {
			log.Debug("empty page skipped", zap.Int("page", p.Number))
			continue
		}
		for content := range in.chunker.ChunkText(text) {
			rows = append(rows, domain.Chunk{
				DocID:      docID,
				ChunkIndex: len(rows),
				Content:    content,
				Metadata:   domain.Metadata{Source: name, Page: p.Number},
			})
		}
	}
	return rows, nil
}

// embed fills rows[i].Embedding in place. Batches may run concurrently but
// each writes only its own slots, so order follows rows.
func (in *Ingestor) embed(ctx context.Context, rows []domain.Chunk, log *zap.Logger) error {
	dim := in.embedder.Dimension()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(in.cfg.EmbedConcurrency)
	for start := 0; start < len(rows); start += in.cfg.EmbedBatchSize {
		end := min(start+in.cfg.EmbedBatchSize, len(rows))
		g.Go(func() error {
			texts := make([]string, end-start)
			for i := range texts {
				texts[i] = rows[start+i].Content
			}
			vecs, err := in.embedder.EmbedBatch(ctx, texts)
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", start, end-1, err)
			}
			if len(vecs) != len(texts) {
				return fmt.Errorf("batch %d-%d: got %d vectors for %d texts", start, end-1, len(vecs), len(texts))
			}
			for i, v := range vecs {
				if len(v) != dim {
					return fmt.Errorf("%w: chunk %d has %d, want %d", domain.ErrDimensionMismatch, start+i, len(v), dim)
				}
				rows[start+i].Embedding = v
			}
			log.Debug("batch embedded", zap.Int("from", start), zap.Int("to", end))
			return nil
		})
	}
	return g.Wait()
}
