package service

import "fmt"

// Pipeline stages reported by StageError.
const (
	StageValidation  = "validation"
	StageExtraction  = "extraction"
	StagePersistence = "persistence"
	StageChunking    = "chunking"
	StageEmbedding   = "embedding"
)

// StageError records which ingestion stage failed for a document.
type StageError struct {
	Stage string
	DocID string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed for %q: %v", e.Stage, e.DocID, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage, docID string, err error) error {
	return &StageError{Stage: stage, DocID: docID, Err: err}
}
