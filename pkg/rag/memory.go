package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Turn is one exchange stored in conversation memory.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Memory keeps a sliding window of recent conversation turns per
// conversation in a Redis list. Idle conversations expire with the key.
type Memory struct {
	client *redis.Client
	window int
	ttl    time.Duration
}

func NewMemory(client *redis.Client, window int, ttl time.Duration) *Memory {
	if window <= 0 {
		window = 10
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Memory{client: client, window: window, ttl: ttl}
}

func (m *Memory) key(creatorID, conversationID string) string {
	return fmt.Sprintf("memory:%s:%s", creatorID, conversationID)
}

// Recent returns the stored turns, oldest first.
func (m *Memory) Recent(ctx context.Context, creatorID, conversationID string) ([]Turn, error) {
	items, err := m.client.LRange(ctx, m.key(creatorID, conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read memory: %w", err)
	}
	turns := make([]Turn, 0, len(items))
	for _, item := range items {
		var turn Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Append records a user/assistant exchange and trims to the window.
func (m *Memory) Append(ctx context.Context, creatorID, conversationID string, turns ...Turn) error {
	key := m.key(creatorID, conversationID)
	pipe := m.client.TxPipeline()
	for _, turn := range turns {
		b, err := json.Marshal(turn)
		if err != nil {
			return err
		}
		pipe.RPush(ctx, key, b)
	}
	pipe.LTrim(ctx, key, int64(-m.window*2), -1)
	pipe.Expire(ctx, key, m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append memory: %w", err)
	}
	return nil
}

// Clear drops a conversation's memory.
func (m *Memory) Clear(ctx context.Context, creatorID, conversationID string) error {
	return m.client.Del(ctx, m.key(creatorID, conversationID)).Err()
}
