package domain

import "errors"

var (
	// ErrInvalidConfig marks configuration errors; they are never retried.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDimensionMismatch is returned when the embedding model and the
	// vector index disagree on vector size.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyDocID is returned when ingestion is asked to run without a doc id.
	ErrEmptyDocID = errors.New("doc id is required")
)
