package store

import (
	"sync"
	"time"
)

// InMemoryDedup is a DedupRepo kept in process memory, used when no database is configured.
type InMemoryDedup struct {
	mu      sync.Mutex
	records map[string]DedupRecord
	now     func() time.Time
}

// Compile-time check that InMemoryDedup implements DedupRepo.
var _ DedupRepo = (*InMemoryDedup)(nil)

// NewInMemoryDedup creates an empty in-memory dedup repository.
func NewInMemoryDedup() *InMemoryDedup {
	return &InMemoryDedup{records: make(map[string]DedupRecord), now: time.Now}
}

// IsDuplicate reports whether messageID was already recorded.
func (d *InMemoryDedup) IsDuplicate(messageID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.records[messageID]
	return ok, nil
}

// RecordInbound records messageID, returning false when it was already present.
func (d *InMemoryDedup) RecordInbound(messageID, participantID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.records[messageID]; ok {
		return false, nil
	}
	d.records[messageID] = DedupRecord{MessageID: messageID, ParticipantID: participantID, ReceivedAt: d.now()}
	return true, nil
}

// MarkProcessed sets the processed time of messageID. Unknown ids are ignored.
func (d *InMemoryDedup) MarkProcessed(messageID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.records[messageID]
	if !ok {
		return nil
	}
	now := d.now()
	rec.ProcessedAt = &now
	d.records[messageID] = rec
	return nil
}

// PurgeBefore removes records received before cutoff.
func (d *InMemoryDedup) PurgeBefore(cutoff time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	for id, rec := range d.records {
		if rec.ReceivedAt.Before(cutoff) {
			delete(d.records, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of tracked message ids.
func (d *InMemoryDedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}
