package app

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoKnowledgeBase means nothing has been ingested yet. It is a normal
	// state, not a failure.
	ErrNoKnowledgeBase = errors.New("no knowledge base yet, upload a document first")
	// ErrNoContent means the document loaded but produced no chunks.
	ErrNoContent = errors.New("document contains no text")
)
