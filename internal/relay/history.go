package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisHistory keeps conversations in redis so they survive restarts.
type RedisHistory struct {
	client *redis.Client
}

func NewRedisHistory(client *redis.Client) *RedisHistory {
	return &RedisHistory{client: client}
}

func historyKey(key string) string {
	return "chat_history:" + key
}

func (h *RedisHistory) Load(ctx context.Context, key string) ([]Message, error) {
	raw, err := h.client.Get(ctx, historyKey(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var history []Message
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		// Corrupt history is dropped rather than wedging the chat.
		return nil, nil
	}
	return history, nil
}

func (h *RedisHistory) Save(ctx context.Context, key string, history []Message) error {
	raw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := h.client.Set(ctx, historyKey(key), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (h *RedisHistory) Delete(ctx context.Context, key string) error {
	return h.client.Del(ctx, historyKey(key)).Err()
}

// MemoryHistory is the in-process fallback used when the ledger runs on
// sqlite and no redis client exists.
type MemoryHistory struct {
	mu   sync.Mutex
	data map[string][]Message
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{data: make(map[string][]Message)}
}

func (h *MemoryHistory) Load(_ context.Context, key string) ([]Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	history := h.data[key]
	out := make([]Message, len(history))
	copy(out, history)
	return out, nil
}

func (h *MemoryHistory) Save(_ context.Context, key string, history []Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, len(history))
	copy(out, history)
	h.data[key] = out
	return nil
}

func (h *MemoryHistory) Delete(_ context.Context, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.data, key)
	return nil
}
