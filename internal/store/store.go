// Package store provides storage backends for SivetachiBot.
//
// It includes the bounded in-memory chat history shown on the dashboard and optional
// SQLite or PostgreSQL persistence for the chat archive and inbound deduplication.
package store

import (
	"sync"

	"github.com/BTreeMap/SivetachiBot/internal/models"
)

// DefaultHistoryLimit is the number of chat events kept in memory.
const DefaultHistoryLimit = 200

// HistoryStore holds the recent chat events of the process.
type HistoryStore interface {
	Append(e models.ChatEvent)
	List() []models.ChatEvent
	Len() int
	Reset()
}

// InMemoryStore is a bounded FIFO of chat events. When the limit is exceeded the
// oldest event is evicted. It is safe for concurrent use.
type InMemoryStore struct {
	mu     sync.RWMutex
	limit  int
	events []models.ChatEvent
}

// Compile-time check that InMemoryStore implements HistoryStore.
var _ HistoryStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates a history holding at most limit events.
// A non-positive limit uses DefaultHistoryLimit.
func NewInMemoryStore(limit int) *InMemoryStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &InMemoryStore{limit: limit, events: make([]models.ChatEvent, 0, limit)}
}

// Append adds e, evicting the oldest event when full.
func (s *InMemoryStore) Append(e models.ChatEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == s.limit {
		copy(s.events, s.events[1:])
		s.events[len(s.events)-1] = e
		return
	}
	s.events = append(s.events, e)
}

// List returns a copy of the events, oldest first.
func (s *InMemoryStore) List() []models.ChatEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ChatEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Len returns the number of stored events.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Limit returns the maximum number of stored events.
func (s *InMemoryStore) Limit() int {
	return s.limit
}

// Reset drops every event.
func (s *InMemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
}
