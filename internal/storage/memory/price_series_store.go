package memory

import (
	"context"
	"sort"
	"sync"

	"collateral-lab/internal/domain"
	"collateral-lab/internal/storage"
)

// PriceSeriesStore is an in-memory implementation of
// storage.PriceSeriesStore.
type PriceSeriesStore struct {
	mu   sync.RWMutex
	data map[seriesPointKey]*domain.PriceSeriesPoint
}

type seriesPointKey struct {
	seriesID string
	day      int
}

// NewPriceSeriesStore creates a new in-memory price series store.
func NewPriceSeriesStore() *PriceSeriesStore {
	return &PriceSeriesStore{
		data: make(map[seriesPointKey]*domain.PriceSeriesPoint),
	}
}

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (series_id, day), including intra-batch duplicates.
func (s *PriceSeriesStore) InsertBulk(_ context.Context, points []*domain.PriceSeriesPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[seriesPointKey]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.SeriesID == "" || p.Price <= 0 {
			return storage.ErrInvalidInput
		}
		k := seriesPointKey{p.SeriesID, p.Day}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, p := range points {
		cp := *p
		s.data[seriesPointKey{p.SeriesID, p.Day}] = &cp
	}
	return nil
}

// GetBySeriesID retrieves all points for a series, ordered by day ASC.
func (s *PriceSeriesStore) GetBySeriesID(_ context.Context, seriesID string) ([]*domain.PriceSeriesPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceSeriesPoint
	for k, p := range s.data {
		if k.seriesID == seriesID {
			cp := *p
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Day < result[j].Day
	})
	return result, nil
}

var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)
