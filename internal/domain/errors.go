package domain

import "errors"

var (
	// ErrNotReady signals a query issued before the corpus was loaded.
	ErrNotReady = errors.New("corpus not loaded")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRecord signals a corpus record that fails validation.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrDuplicateName signals two records sharing a name within one load batch.
	ErrDuplicateName = errors.New("duplicate entity name")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationFailed signals a text generation backend failure.
	// Callers should retry with backoff; the vector store stays valid.
	ErrGenerationFailed = errors.New("generation failed")
)
