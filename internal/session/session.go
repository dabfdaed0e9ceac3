// Package session keeps per-session conversation turns.
package session

import (
	"context"

	"kbqa/internal/model"
)

// Store holds the ordered turns of each session. Get on an unknown id returns
// an empty slice. Append creates the session on first use and adds all turns
// of one call atomically.
type Store interface {
	Get(ctx context.Context, id string) ([]model.Turn, error)
	Append(ctx context.Context, id string, turns ...model.Turn) error
}

// evenCap rounds a turn cap down to whole user/assistant pairs.
func evenCap(maxTurns int) int {
	if maxTurns <= 0 {
		return 0
	}
	return maxTurns - maxTurns%2
}
