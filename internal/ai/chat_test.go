package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatClient_Complete(t *testing.T) {
	var got struct {
		Model    string        `json:"model"`
		Messages []ChatMessage `json:"messages"`
		Stream   bool          `json:"stream"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Paris."}}]}`))
	}))
	defer srv.Close()

	client := NewChatClient(ChatConfig{BaseURL: srv.URL + "/v1/", APIKey: "sk-test", Model: "qwen-plus"})
	answer, err := client.Complete(context.Background(), []ChatMessage{{Role: RoleUser, Content: "capital of France?"}})

	require.NoError(t, err)
	assert.Equal(t, "Paris.", answer)
	assert.Equal(t, "qwen-plus", client.Model())
	assert.Equal(t, "qwen-plus", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, []ChatMessage{{Role: "user", Content: "capital of France?"}}, got.Messages)
}

func TestChatClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"choices":[]}`))
			},
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"choices":`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := NewChatClient(ChatConfig{BaseURL: srv.URL, Model: "m"})
			_, err := client.Complete(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrGeneration)
		})
	}
}

func TestChatClient_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewChatClient(ChatConfig{BaseURL: srv.URL, Model: "m"})
	_, err := client.Complete(ctx, []ChatMessage{{Role: RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChatClient_NoMessages(t *testing.T) {
	client := NewChatClient(ChatConfig{BaseURL: "http://127.0.0.1:1", Model: "m"})
	_, err := client.Complete(context.Background(), nil)
	assert.ErrorIs(t, err, ErrGeneration)
}
