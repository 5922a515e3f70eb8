// Package memory provides in-memory implementations of the storage
// interfaces, used by tests and by the CLIs' --use-memory mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"collateral-lab/internal/domain"
	"collateral-lab/internal/storage"
)

// SimulationRunStore is an in-memory implementation of
// storage.SimulationRunStore.
type SimulationRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SimulationRun // keyed by run_id
}

// NewSimulationRunStore creates a new in-memory run store.
func NewSimulationRunStore() *SimulationRunStore {
	return &SimulationRunStore{
		data: make(map[string]*domain.SimulationRun),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *SimulationRunStore) Insert(_ context.Context, run *domain.SimulationRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *run
	s.data[run.RunID] = &cp
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *SimulationRunStore) GetByID(_ context.Context, runID string) (*domain.SimulationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *run
	return &cp, nil
}

// GetByAsset retrieves all runs for an asset, ordered by created_at
// ASC, run_id ASC.
func (s *SimulationRunStore) GetByAsset(_ context.Context, asset string) ([]*domain.SimulationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SimulationRun
	for _, run := range s.data {
		if run.Asset == asset {
			cp := *run
			result = append(result, &cp)
		}
	}

	sortRuns(result)
	return result, nil
}

// List retrieves all runs, ordered by created_at ASC, run_id ASC.
func (s *SimulationRunStore) List(_ context.Context) ([]*domain.SimulationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.SimulationRun, 0, len(s.data))
	for _, run := range s.data {
		cp := *run
		result = append(result, &cp)
	}

	sortRuns(result)
	return result, nil
}

// sortRuns orders deterministically: created_at ASC, run_id ASC.
func sortRuns(runs []*domain.SimulationRun) {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.Before(runs[j].CreatedAt)
		}
		return runs[i].RunID < runs[j].RunID
	})
}

var _ storage.SimulationRunStore = (*SimulationRunStore)(nil)
