package historyrepo

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/yanqian/meeting-summarizer/internal/domain/summarizer"
)

// MemoryRepository is an in-memory HistoryRepository used for tests/dev.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []summarizer.Record
}

// NewMemoryRepository constructs a repo backed by memory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Append implements summarizer.HistoryRepository.
func (r *MemoryRepository) Append(_ context.Context, rec summarizer.Record) (summarizer.Record, error) {
	rec.ID = uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return rec, nil
}

// Recent implements summarizer.HistoryRepository. Records appended later
// come first, which also breaks ties on equal timestamps.
func (r *MemoryRepository) Recent(_ context.Context, limit int) ([]summarizer.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 || limit > len(r.records) {
		limit = len(r.records)
	}
	out := make([]summarizer.Record, 0, limit)
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.records[i])
	}
	return out, nil
}

// Close implements io.Closer.
func (r *MemoryRepository) Close() error { return nil }
