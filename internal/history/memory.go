package history

import (
	"context"
	"sync"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// MemoryStore is an in-memory Store. It backs the server when no
// database is configured and every test that needs history.
type MemoryStore struct {
	mu       sync.RWMutex
	messages []*Message
	nextID   int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append implements Store.
func (m *MemoryStore) Append(ctx context.Context, author, body string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := surrealmodels.NewRecordID("message", m.nextID)
	msg := &Message{
		ID:        &id,
		Author:    author,
		Body:      body,
		CreatedAt: &surrealmodels.CustomDateTime{Time: time.Now().UTC()},
	}
	m.messages = append(m.messages, msg)
	return msg, nil
}

// Recent implements Store, returning the newest limit messages in
// oldest-first order.
func (m *MemoryStore) Recent(ctx context.Context, limit int) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.messages) {
		limit = len(m.messages)
	}
	start := len(m.messages) - limit
	out := make([]*Message, limit)
	copy(out, m.messages[start:])
	return out, nil
}
