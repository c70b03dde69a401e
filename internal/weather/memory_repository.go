package weather

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryRepository is an in-process ObservationRepository with TTL-based
// expiry. It is the default backend when no database is configured.
type MemoryRepository struct {
	ttl time.Duration

	mu      sync.RWMutex
	windows map[string]*cachedWindow
}

type cachedWindow struct {
	rows     []*Observation
	storedAt time.Time
}

// NewMemoryRepository creates a memory repository. A ttl of zero disables
// expiry.
func NewMemoryRepository(ttl time.Duration) *MemoryRepository {
	return &MemoryRepository{
		ttl:     ttl,
		windows: make(map[string]*cachedWindow),
	}
}

// GetWindow implements ObservationRepository.
func (r *MemoryRepository) GetWindow(_ context.Context, start, end time.Time) ([]*Observation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.windows[windowKey(start, end)]
	if !ok {
		return nil, ErrWindowNotCached
	}
	if r.ttl > 0 && time.Since(w.storedAt) > r.ttl {
		return nil, ErrWindowNotCached
	}
	return w.rows, nil
}

// SaveWindow implements ObservationRepository.
func (r *MemoryRepository) SaveWindow(_ context.Context, start, end time.Time, rows []*Observation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.windows[windowKey(start, end)] = &cachedWindow{
		rows:     rows,
		storedAt: time.Now(),
	}
	return nil
}

// Purge implements ObservationRepository.
func (r *MemoryRepository) Purge(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = make(map[string]*cachedWindow)
	return nil
}

// Size returns the number of cached windows, expired entries included.
func (r *MemoryRepository) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.windows)
}

func windowKey(start, end time.Time) string {
	return fmt.Sprintf("%d:%d", start.Unix(), end.Unix())
}
