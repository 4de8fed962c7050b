package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps conversations in Redis so dialogue state survives process
// restarts. Values are JSON; each write refreshes the TTL, so abandoned
// conversations expire on their own.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisStore wraps an existing client. A zero ttl keeps keys forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{Client: client, TTL: ttl}
}

func redisKey(chatID int64) string {
	return "conv:" + strconv.FormatInt(chatID, 10)
}

func (s *RedisStore) Get(ctx context.Context, chatID int64) (*Conversation, error) {
	raw, err := s.Client.Get(ctx, redisKey(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("engine: redis get: %w", err)
	}
	var c Conversation
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("engine: decode conversation: %w", err)
	}
	return &c, nil
}

func (s *RedisStore) Put(ctx context.Context, chatID int64, c *Conversation) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("engine: encode conversation: %w", err)
	}
	if err := s.Client.Set(ctx, redisKey(chatID), raw, s.TTL).Err(); err != nil {
		return fmt.Errorf("engine: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, chatID int64) error {
	if err := s.Client.Del(ctx, redisKey(chatID)).Err(); err != nil {
		return fmt.Errorf("engine: redis del: %w", err)
	}
	return nil
}
