package storage

import (
	"context"

	"collateral-lab/internal/domain"
)

// SimulationRunStore provides access to simulation_runs storage.
type SimulationRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.SimulationRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.SimulationRun, error)

	// GetByAsset retrieves all runs for a collateral asset, ordered by
	// created_at ASC, run_id ASC.
	GetByAsset(ctx context.Context, asset string) ([]*domain.SimulationRun, error)

	// List retrieves all runs, ordered by created_at ASC, run_id ASC.
	List(ctx context.Context) ([]*domain.SimulationRun, error)
}

// PositionEventStore provides access to position_events storage.
type PositionEventStore interface {
	// InsertBulk adds all events of one run atomically. Events for an
	// already-recorded run return ErrDuplicateKey.
	InsertBulk(ctx context.Context, runID string, events []*domain.PositionEvent) error

	// GetByRunID retrieves all events for a run, ordered by day ASC
	// then insertion order.
	GetByRunID(ctx context.Context, runID string) ([]*domain.PositionEvent, error)
}

// PriceSeriesStore provides access to recorded daily price series used
// by replay mode.
type PriceSeriesStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate
	// (series_id, day).
	InsertBulk(ctx context.Context, points []*domain.PriceSeriesPoint) error

	// GetBySeriesID retrieves all points for a series, ordered by day ASC.
	GetBySeriesID(ctx context.Context, seriesID string) ([]*domain.PriceSeriesPoint, error)
}
