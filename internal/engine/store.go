package engine

import (
	"context"
	"sync"
)

// Store persists per-chat conversation state between events. Implementations
// must be safe for concurrent use; Get returns (nil, nil) for idle chats.
type Store interface {
	Get(ctx context.Context, chatID int64) (*Conversation, error)
	Put(ctx context.Context, chatID int64, c *Conversation) error
	Clear(ctx context.Context, chatID int64) error
}

// MemoryStore keeps conversations in process memory. State is lost on
// restart; use the Redis store for deployments that need to survive one.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[int64]*Conversation
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[int64]*Conversation)}
}

func (s *MemoryStore) Get(_ context.Context, chatID int64) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.m[chatID]
	if !ok {
		return nil, nil
	}
	return c.clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, chatID int64, c *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[chatID] = c.clone()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, chatID)
	return nil
}
