package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docrag/internal/chunker"
	"docrag/internal/service"
	"docrag/internal/source"
	"docrag/internal/tokenizer"
)

func newIngestCmd(a *app) *cobra.Command {
	var docID string
	cmd := &cobra.Command{
		Use:   "ingest [path]",
		Short: "Replace a document's chunks in the vector index",
		Long: `Reads a PDF (or form-feed separated text file), splits each page into
overlapping sentence windows, embeds them and replaces every row stored
under the document id. Re-running with the same inputs is idempotent.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			path := cfg.Ingest.Source
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no source given; pass a path or set ingest.source")
			}
			if docID == "" {
				docID = cfg.Ingest.DocID
			}
			if docID == "" {
				return errors.New("no doc id given; pass --doc-id or set ingest.doc_id")
			}

			f := cmd.Flags()
			if f.Changed("sentences") {
				cfg.Chunker.SentencesPerChunk, _ = f.GetInt("sentences")
			}
			if f.Changed("overlap") {
				cfg.Chunker.OverlapSentences, _ = f.GetInt("overlap")
			}
			if f.Changed("max-tokens") {
				cfg.Chunker.MaxTokens, _ = f.GetInt("max-tokens")
			}
			if f.Changed("min-tokens") {
				cfg.Chunker.MinTokens, _ = f.GetInt("min-tokens")
			}
			if f.Changed("embed-batch") {
				cfg.Pipeline.EmbedBatchSize, _ = f.GetInt("embed-batch")
			}
			if f.Changed("concurrency") {
				cfg.Pipeline.EmbedConcurrency, _ = f.GetInt("concurrency")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			src, err := source.Open(path)
			if err != nil {
				return err
			}
			counter, err := tokenizer.New(cfg.Chunker.Encoding)
			if err != nil {
				return err
			}
			ch := chunker.NewSentenceChunker(counter, chunker.Options{
				SentencesPerChunk: cfg.Chunker.SentencesPerChunk,
				Overlap:           cfg.Chunker.OverlapSentences,
				MaxTokens:         cfg.Chunker.MaxTokens,
				MinTokens:         cfg.Chunker.MinTokens,
			})

			ctx := cmd.Context()
			emb, index, release, err := a.openBackends(ctx)
			if err != nil {
				return err
			}
			defer release()

			n, err := service.NewIngestor(ch, emb, index, cfg.Pipeline, a.log.Named("ingest")).Ingest(ctx, src, docID)
			if err != nil {
				a.log.Error("ingest failed", zap.Error(err))
				return err
			}
			cmd.Printf("Inserted %d chunks for doc_id=%s from %s\n", n, docID, src.Name())
			return nil
		},
	}
	cmd.Flags().StringVar(&docID, "doc-id", "", "stable document id (default ingest.doc_id)")
	cmd.Flags().Int("sentences", chunker.DefaultSentencesPerChunk, "sentences per chunk")
	cmd.Flags().Int("overlap", chunker.DefaultOverlap, "sentences shared by consecutive chunks")
	cmd.Flags().Int("max-tokens", chunker.DefaultMaxTokens, "token ceiling per chunk (0 disables)")
	cmd.Flags().Int("min-tokens", chunker.DefaultMinTokens, "drop chunks with fewer tokens")
	cmd.Flags().Int("embed-batch", 100, "texts per embedding request")
	cmd.Flags().Int("concurrency", 1, "embedding requests in flight")
	return cmd
}
