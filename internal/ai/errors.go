package ai

import "errors"

var (
	// ErrEmbeddingService marks a failed call to the embedding backend.
	// Callers may retry.
	ErrEmbeddingService = errors.New("embedding service error")
	// ErrGeneration marks a failed completion call.
	ErrGeneration = errors.New("generation error")
)
