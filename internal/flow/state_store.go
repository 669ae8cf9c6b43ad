package flow

import (
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/SivetachiBot/internal/models"
)

type stateEntry struct {
	mu    sync.Mutex
	state *models.ConversationState
}

// StateStore owns the dialog state of every conversation. Each conversation has its
// own mutex so concurrent webhook deliveries for one customer are applied one at a time
// while different customers proceed in parallel.
type StateStore struct {
	mu      sync.Mutex
	entries map[string]*stateEntry
}

// NewStateStore creates an empty StateStore.
func NewStateStore() *StateStore {
	return &StateStore{entries: make(map[string]*stateEntry)}
}

func (s *StateStore) entry(conversationID string) *stateEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[conversationID]
	if !ok {
		e = &stateEntry{state: models.NewConversationState(conversationID)}
		s.entries[conversationID] = e
		slog.Debug("StateStore.entry: created conversation state", "conversationID", conversationID)
	}
	return e
}

// Get returns the state for conversationID, creating a fresh one on first access.
// Callers that mutate the state must hold the lock returned by Lock.
func (s *StateStore) Get(conversationID string) *models.ConversationState {
	return s.entry(conversationID).state
}

// Lock acquires the conversation mutex and returns its unlock function.
func (s *StateStore) Lock(conversationID string) func() {
	for {
		e := s.entry(conversationID)
		e.mu.Lock()
		s.mu.Lock()
		current := s.entries[conversationID]
		s.mu.Unlock()
		if current == e {
			return e.mu.Unlock
		}
		// Evicted between lookup and lock; retry on the replacement entry.
		e.mu.Unlock()
	}
}

// Snapshot returns a copy of the conversation state, if it exists.
func (s *StateStore) Snapshot(conversationID string) (models.ConversationState, bool) {
	s.mu.Lock()
	e, ok := s.entries[conversationID]
	s.mu.Unlock()
	if !ok {
		return models.ConversationState{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := *e.state
	cp.LastReplyByKey = make(map[string]string, len(e.state.LastReplyByKey))
	for k, v := range e.state.LastReplyByKey {
		cp.LastReplyByKey[k] = v
	}
	if e.state.SelectedItem != nil {
		item := *e.state.SelectedItem
		cp.SelectedItem = &item
	}
	return cp, true
}

// Len returns the number of tracked conversations.
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// EvictIdle removes conversations not updated since before and returns how many were
// dropped. Conversations currently being processed are skipped.
func (s *StateStore) EvictIdle(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.state.UpdatedAt.Before(before) {
			delete(s.entries, id)
			evicted++
		}
		e.mu.Unlock()
	}
	if evicted > 0 {
		slog.Info("StateStore.EvictIdle: evicted idle conversations", "count", evicted, "before", before)
	}
	return evicted
}

// Reset drops every conversation.
func (s *StateStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*stateEntry)
}
