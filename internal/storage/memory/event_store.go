package memory

import (
	"context"
	"sort"
	"sync"

	"collateral-lab/internal/domain"
	"collateral-lab/internal/storage"
)

// PositionEventStore is an in-memory implementation of
// storage.PositionEventStore.
type PositionEventStore struct {
	mu   sync.RWMutex
	data map[string][]domain.PositionEvent // keyed by run_id
}

// NewPositionEventStore creates a new in-memory event store.
func NewPositionEventStore() *PositionEventStore {
	return &PositionEventStore{
		data: make(map[string][]domain.PositionEvent),
	}
}

// InsertBulk adds all events of one run atomically. A run that already
// has events recorded returns ErrDuplicateKey.
func (s *PositionEventStore) InsertBulk(_ context.Context, runID string, events []*domain.PositionEvent) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}

	stored := make([]domain.PositionEvent, 0, len(events))
	for _, e := range events {
		if e == nil {
			return storage.ErrInvalidInput
		}
		cp := *e
		cp.RunID = runID
		stored = append(stored, cp)
	}
	s.data[runID] = stored
	return nil
}

// GetByRunID retrieves all events for a run, ordered by day ASC then
// insertion order.
func (s *PositionEventStore) GetByRunID(_ context.Context, runID string) ([]*domain.PositionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.data[runID]
	if !exists {
		return nil, nil
	}

	result := make([]*domain.PositionEvent, len(stored))
	for i := range stored {
		cp := stored[i]
		result[i] = &cp
	}

	// Insertion order already follows the day loop; a stable sort by
	// day keeps the contract explicit.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Day < result[j].Day
	})
	return result, nil
}

var _ storage.PositionEventStore = (*PositionEventStore)(nil)
