package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"kbqa/internal/model"
)

// RedisStore keeps each session as a redis list of JSON-encoded turns.
type RedisStore struct {
	client    redisv9.UniversalClient
	keyPrefix string
	maxTurns  int
	ttl       time.Duration
}

type RedisOptions struct {
	KeyPrefix string
	MaxTurns  int
	// TTL refreshes the session expiry on every append. Zero never expires.
	TTL time.Duration
}

func NewRedisStore(client redisv9.UniversalClient, opts RedisOptions) *RedisStore {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "kbqa:session:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: prefix,
		maxTurns:  evenCap(opts.MaxTurns),
		ttl:       opts.TTL,
	}
}

func (s *RedisStore) Get(ctx context.Context, id string) ([]model.Turn, error) {
	raw, err := s.client.LRange(ctx, s.key(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get history failed: %w", err)
	}
	turns := make([]model.Turn, 0, len(raw))
	for i, item := range raw {
		var turn model.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("unmarshal turn %d failed: %w", i, err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Append pushes every turn with one RPUSH inside a MULTI so that the pair
// lands together.
func (s *RedisStore) Append(ctx context.Context, id string, turns ...model.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	values := make([]interface{}, len(turns))
	for i, turn := range turns {
		payload, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("marshal turn failed: %w", err)
		}
		values[i] = payload
	}

	key := s.key(id)
	_, err := s.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if s.maxTurns > 0 {
			pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append history failed: %w", err)
	}
	return nil
}

func (s *RedisStore) key(id string) string {
	return s.keyPrefix + id
}
