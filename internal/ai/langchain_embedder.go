package ai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangchainEmbedder delegates to langchaingo's embeddings package over its
// OpenAI client, which also speaks to compatible gateways.
type LangchainEmbedder struct {
	embedder embeddings.Embedder
	model    string
}

func NewLangchainEmbedder(cfg EmbeddingConfig) (*LangchainEmbedder, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		// the openai client refuses to start without a token
		apiKey = "placeholder"
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultEmbeddingBatchSize
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai client failed: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithBatchSize(batch))
	if err != nil {
		return nil, fmt.Errorf("create embedder failed: %w", err)
	}
	return &LangchainEmbedder{embedder: embedder, model: cfg.Model}, nil
}

func (e *LangchainEmbedder) Model() string { return e.model }

func (e *LangchainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingService, err)
	}
	return vector, nil
}

func (e *LangchainEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingService, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingService, len(texts), len(vectors))
	}
	return vectors, nil
}
