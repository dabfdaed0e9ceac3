package session

import (
	"context"
	"sync"

	"kbqa/internal/model"
)

type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]model.Turn
	maxTurns int
}

// NewMemoryStore keeps at most maxTurns turns per session, dropping the
// oldest pairs first. Zero keeps everything.
func NewMemoryStore(maxTurns int) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]model.Turn),
		maxTurns: evenCap(maxTurns),
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) ([]model.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.sessions[id]
	out := make([]model.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, id string, turns ...model.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.sessions[id], turns...)
	if s.maxTurns > 0 && len(history) > s.maxTurns {
		history = append([]model.Turn(nil), history[len(history)-s.maxTurns:]...)
	}
	s.sessions[id] = history
	return nil
}
