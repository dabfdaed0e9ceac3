package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// embeddingServer answers each input with [len(input), position] and records
// the batch sizes it saw. Items are returned in reverse to exercise reordering.
type embeddingServer struct {
	mu      sync.Mutex
	batches []int
	fail    bool
}

func (s *embeddingServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.fail {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
		return
	}
	var req struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.batches = append(s.batches, len(req.Input))
	s.mu.Unlock()

	type item struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	}
	data := make([]item, 0, len(req.Input))
	for i := len(req.Input) - 1; i >= 0; i-- {
		data = append(data, item{Index: i, Embedding: []float32{float32(len(req.Input[i])), float32(i)}})
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func newTestServer(t *testing.T, h http.Handler) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestHTTPEmbedder_Embed(t *testing.T) {
	srv := httptest.NewServer(&embeddingServer{})
	defer srv.Close()

	e := NewHTTPEmbedder(EmbeddingConfig{BaseURL: srv.URL, Model: "text-embedding-v1"})
	vec, err := e.Embed(context.Background(), "  hello  ")

	require.NoError(t, err)
	assert.Equal(t, []float32{5, 0}, vec)
	assert.Equal(t, "text-embedding-v1", e.Model())
}

func TestHTTPEmbedder_EmptyInput(t *testing.T) {
	e := NewHTTPEmbedder(EmbeddingConfig{BaseURL: "http://127.0.0.1:1"})
	_, err := e.Embed(context.Background(), "   ")
	require.Error(t, err)
}

func TestHTTPEmbedder_EmbedManyBatchesInOrder(t *testing.T) {
	server := &embeddingServer{}
	srv := httptest.NewServer(server)
	defer srv.Close()

	texts := make([]string, 23)
	for i := range texts {
		texts[i] = fmt.Sprintf("%0*d", i+1, 0)
	}

	e := NewHTTPEmbedder(EmbeddingConfig{BaseURL: srv.URL, Model: "m", BatchSize: 10, RequestsPerSecond: 1000})
	vectors, err := e.EmbedMany(context.Background(), texts)

	require.NoError(t, err)
	require.Len(t, vectors, 23)
	for i, v := range vectors {
		assert.Equal(t, float32(i+1), v[0], "vector %d out of order", i)
	}
	assert.Equal(t, []int{10, 10, 3}, server.batches)
}

func TestHTTPEmbedder_ServiceError(t *testing.T) {
	srv := httptest.NewServer(&embeddingServer{fail: true})
	defer srv.Close()

	e := NewHTTPEmbedder(EmbeddingConfig{BaseURL: srv.URL, Model: "m"})

	_, err := e.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmbeddingService)
	assert.Contains(t, err.Error(), "429")

	_, err = e.EmbedMany(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrEmbeddingService)
}

func TestHTTPEmbedder_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,2]}]}`))
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(EmbeddingConfig{BaseURL: srv.URL, Model: "m"})
	_, err := e.EmbedMany(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrEmbeddingService)
}

func TestHTTPEmbedder_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	e := NewHTTPEmbedder(EmbeddingConfig{BaseURL: url, Model: "m"})
	_, err := e.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmbeddingService)
}
