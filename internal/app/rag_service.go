package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"kbqa/internal/ai"
	"kbqa/internal/blobstore"
	"kbqa/internal/chunker"
	"kbqa/internal/document"
	"kbqa/internal/metrics"
	"kbqa/internal/model"
	"kbqa/internal/session"
	"kbqa/internal/vectorindex"
)

// TurnPublisher receives every answered question/answer pair. Publishing is
// best effort.
type TurnPublisher interface {
	PublishTurns(ctx context.Context, sessionID string, turns []model.Turn) error
}

type RAGDeps struct {
	Index     *vectorindex.Store
	Blobs     *blobstore.Store
	Splitter  *chunker.Splitter
	Sessions  session.Store
	Completer ai.Completer
	// Optional.
	Publisher TurnPublisher
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	TopK      int
}

type RAGService struct {
	index     *vectorindex.Store
	blobs     *blobstore.Store
	splitter  *chunker.Splitter
	sessions  session.Store
	completer ai.Completer
	publisher TurnPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	topK      int
}

func NewRAGService(deps RAGDeps) *RAGService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	topK := deps.TopK
	if topK <= 0 {
		topK = vectorindex.DefaultTopK
	}
	splitter := deps.Splitter
	if splitter == nil {
		splitter = chunker.New()
	}
	return &RAGService{
		index:     deps.Index,
		blobs:     deps.Blobs,
		splitter:  splitter,
		sessions:  deps.Sessions,
		completer: deps.Completer,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logger:    logger,
		topK:      topK,
	}
}

// IngestInput is one uploaded file.
type IngestInput struct {
	Filename string
	Body     io.Reader
}

type IngestResult struct {
	Message string `json:"message"`
	Chunks  int    `json:"chunks"`
}

// Ingest stages the upload, loads and chunks it, and appends the chunks to
// the vector index. The blob is committed only after the index is saved, so
// a failed upload leaves neither a blob nor index entries behind.
func (s *RAGService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if input.Body == nil {
		s.metrics.IngestFailed("invalid_input")
		return nil, ErrInvalidInput
	}
	staged, err := s.blobs.Stage(input.Filename, input.Body)
	if err != nil {
		if errors.Is(err, blobstore.ErrInvalidName) {
			s.metrics.IngestFailed("invalid_input")
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		s.metrics.IngestFailed("storage_error")
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			staged.Discard()
		}
	}()

	start := time.Now()
	docs, err := document.Load(staged.Path)
	s.metrics.ObserveStage(metrics.StageLoad, start)
	if err != nil {
		s.metrics.IngestFailed("load_error")
		s.logger.Warn("document load failed", zap.String("file", staged.Name), zap.Error(err))
		return nil, err
	}

	start = time.Now()
	chunks := s.splitter.SplitDocuments(docs)
	s.metrics.ObserveStage(metrics.StageChunk, start)
	if len(chunks) == 0 {
		s.metrics.IngestFailed("no_content")
		return nil, fmt.Errorf("%w: %s", ErrNoContent, staged.Name)
	}

	start = time.Now()
	entries, err := s.index.Ingest(ctx, chunks)
	s.metrics.ObserveStage(metrics.StageIndex, start)
	if err != nil {
		s.metrics.IngestFailed("index_error")
		s.logger.Error("index ingest failed", zap.String("file", staged.Name), zap.Error(err))
		return nil, fmt.Errorf("index %s: %w", staged.Name, err)
	}

	if err := staged.Commit(); err != nil {
		// The chunks are already searchable; only the raw copy is missing.
		s.logger.Error("blob commit failed", zap.String("file", staged.Name), zap.Error(err))
		s.metrics.IngestFailed("storage_error")
		return nil, err
	}
	committed = true

	s.metrics.IngestSucceeded(len(chunks), entries)
	s.logger.Info("document ingested",
		zap.String("file", staged.Name),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
		zap.Int("index_entries", entries),
	)
	return &IngestResult{
		Message: staged.Name + " uploaded and indexed",
		Chunks:  len(chunks),
	}, nil
}

type AskInput struct {
	Query     string
	SessionID string
}

type AskResult struct {
	Query       string `json:"query"`
	Answer      string `json:"answer"`
	SourceCount int    `json:"source_count"`
	SessionID   string `json:"session_id"`
}

// Ask answers query from the top-k retrieved chunks and the session's prior
// turns. The session gains the user/assistant pair only when an answer was
// produced.
func (s *RAGService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	query := strings.TrimSpace(input.Query)
	sessionID := strings.TrimSpace(input.SessionID)
	if query == "" || sessionID == "" {
		s.metrics.Query("invalid_input")
		return nil, ErrInvalidInput
	}

	history, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		s.metrics.Query("session_error")
		return nil, fmt.Errorf("load session history: %w", err)
	}

	exists, err := s.index.Exists()
	if err != nil {
		s.metrics.Query("search_error")
		return nil, err
	}
	if !exists {
		s.metrics.Query("no_knowledge_base")
		return nil, ErrNoKnowledgeBase
	}

	start := time.Now()
	results, err := s.index.Search(ctx, query, s.topK)
	s.metrics.ObserveStage(metrics.StageSearch, start)
	if err != nil {
		s.metrics.Query("search_error")
		return nil, fmt.Errorf("search index: %w", err)
	}

	messages := make([]ai.ChatMessage, 0, len(history)+1)
	messages = append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: BuildPrompt(BuildContext(results), query)})
	for _, turn := range history {
		messages = append(messages, ai.ChatMessage{Role: turn.Role, Content: turn.Content})
	}

	start = time.Now()
	answer, err := s.completer.Complete(ctx, messages)
	s.metrics.ObserveStage(metrics.StageGenerate, start)
	if err != nil {
		s.metrics.Query("generation_error")
		s.logger.Warn("completion failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = FallbackAnswer
	}

	turns := []model.Turn{
		{Role: model.RoleUser, Content: query},
		{Role: model.RoleAssistant, Content: answer},
	}
	if err := s.sessions.Append(ctx, sessionID, turns...); err != nil {
		s.metrics.Query("session_error")
		return nil, fmt.Errorf("save session history: %w", err)
	}
	s.archive(ctx, sessionID, turns)

	s.metrics.Query("answered")
	s.logger.Debug("question answered",
		zap.String("session_id", sessionID),
		zap.String("query", chunker.Preview(query, 80)),
		zap.Int("sources", len(results)),
		zap.Int("history_turns", len(history)),
	)
	return &AskResult{
		Query:       query,
		Answer:      answer,
		SourceCount: len(results),
		SessionID:   sessionID,
	}, nil
}

func (s *RAGService) archive(ctx context.Context, sessionID string, turns []model.Turn) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTurns(ctx, sessionID, turns); err != nil {
		s.logger.Warn("archive publish failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// History returns the stored turns of a session, oldest first.
func (s *RAGService) History(ctx context.Context, sessionID string) ([]model.Turn, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	return s.sessions.Get(ctx, sessionID)
}

// ListFiles returns the names of committed uploads.
func (s *RAGService) ListFiles() ([]string, error) {
	return s.blobs.List()
}

// KnowledgeBaseReady reports whether at least one document has been indexed.
func (s *RAGService) KnowledgeBaseReady() (bool, error) {
	return s.index.Exists()
}
