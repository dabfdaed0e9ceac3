// Package aitest provides deterministic stand-ins for the remote embedding
// and completion services.
package aitest

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"kbqa/internal/ai"
)

// BagOfWords hashes lower-cased words into a fixed number of buckets. Texts
// sharing words get similar vectors.
type BagOfWords struct {
	Dim       int
	ModelName string
	// Err, when set, is returned (wrapped in ai.ErrEmbeddingService) by every call.
	Err error

	mu    sync.Mutex
	calls int
}

func NewBagOfWords() *BagOfWords {
	return &BagOfWords{Dim: 128, ModelName: "bag-of-words"}
}

func (b *BagOfWords) Model() string { return b.ModelName }

func (b *BagOfWords) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func (b *BagOfWords) Embed(ctx context.Context, text string) ([]float32, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	if b.Err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrEmbeddingService, b.Err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.vector(text), nil
}

func (b *BagOfWords) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := b.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (b *BagOfWords) vector(text string) []float32 {
	dim := b.Dim
	if dim <= 0 {
		dim = 128
	}
	// The last bucket is a constant so blank text still has a direction.
	v := make([]float32, dim+1)
	v[dim] = 0.05
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%uint32(dim)]++
	}
	return v
}

// Completer records every call and replies with Answer or Err.
type Completer struct {
	Answer string
	Err    error

	mu    sync.Mutex
	calls [][]ai.ChatMessage
}

func (c *Completer) Complete(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, append([]ai.ChatMessage(nil), messages...))
	if c.Err != nil {
		return "", fmt.Errorf("%w: %w", ai.ErrGeneration, c.Err)
	}
	return c.Answer, nil
}

func (c *Completer) Calls() [][]ai.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]ai.ChatMessage(nil), c.calls...)
}
