package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// MemoryStore keeps conversations in process. Values are stored encoded so
// callers never share a Conversation with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, sessionKey string) (*Conversation, error) {
	key := strings.TrimSpace(sessionKey)
	if key == "" {
		return nil, ErrInvalidSession
	}

	m.mu.RLock()
	raw, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrStateNotFound
	}

	var conv Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, fmt.Errorf("unmarshal conversation: %w", err)
	}
	return &conv, nil
}

func (m *MemoryStore) Save(_ context.Context, c *Conversation) error {
	if err := c.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	m.mu.Lock()
	m.items[strings.TrimSpace(c.SessionKey)] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionKey string) error {
	key := strings.TrimSpace(sessionKey)
	if key == "" {
		return ErrInvalidSession
	}
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}
