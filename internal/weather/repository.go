package weather

import (
	"context"
	"errors"
	"time"
)

// ErrWindowNotCached is returned when a requested observation window has no
// cached copy.
var ErrWindowNotCached = errors.New("observation window not cached")

// ObservationRepository caches fetched observation windows. A window is
// identified purely by its (start, end) bounds: the upstream retrieval is a
// pure function of those parameters, so estimation correctness never depends
// on cache presence or staleness.
type ObservationRepository interface {
	// GetWindow returns the cached rows for an exact (start, end) window,
	// or ErrWindowNotCached.
	GetWindow(ctx context.Context, start, end time.Time) ([]*Observation, error)

	// SaveWindow stores the rows for a window, replacing any previous copy.
	SaveWindow(ctx context.Context, start, end time.Time, rows []*Observation) error

	// Purge removes all cached windows.
	Purge(ctx context.Context) error
}
