package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"collateral-lab/internal/domain"
	"collateral-lab/internal/storage"
)

// PositionEventStore implements storage.PositionEventStore using PostgreSQL.
type PositionEventStore struct {
	pool *Pool
}

// NewPositionEventStore creates a new PositionEventStore.
func NewPositionEventStore(pool *Pool) *PositionEventStore {
	return &PositionEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionEventStore = (*PositionEventStore)(nil)

// InsertBulk adds all events of one run atomically. A run that already
// has recorded events returns ErrDuplicateKey.
func (s *PositionEventStore) InsertBulk(ctx context.Context, runID string, events []*domain.PositionEvent) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var existing int
	row := tx.QueryRow(ctx, `SELECT COUNT(*) FROM position_events WHERE run_id = $1`, runID)
	if err := row.Scan(&existing); err != nil {
		return fmt.Errorf("check existing events: %w", err)
	}
	if existing > 0 {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO position_events (
			run_id, strategy, event_type, day, price, amount,
			from_yield_reserve, from_vault, from_collateral,
			health_before, health_after, seq
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12
		)
	`

	for i, e := range events {
		_, err := tx.Exec(ctx, query,
			runID, e.Strategy, e.Type, e.Day, e.Price, e.Amount,
			e.FromYieldReserve, e.FromVault, e.FromCollateral,
			e.HealthBefore, e.HealthAfter, i,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert position event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves all events for a run in day order, preserving
// the order events were recorded within a day.
func (s *PositionEventStore) GetByRunID(ctx context.Context, runID string) ([]*domain.PositionEvent, error) {
	query := `
		SELECT
			run_id, strategy, event_type, day, price, amount,
			from_yield_reserve, from_vault, from_collateral,
			health_before, health_after
		FROM position_events
		WHERE run_id = $1
		ORDER BY day ASC, seq ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get position events by run id: %w", err)
	}
	defer rows.Close()

	return scanPositionEvents(rows)
}

// scanPositionEvents scans multiple rows into a slice of PositionEvent.
func scanPositionEvents(rows pgx.Rows) ([]*domain.PositionEvent, error) {
	var events []*domain.PositionEvent

	for rows.Next() {
		var e domain.PositionEvent

		err := rows.Scan(
			&e.RunID, &e.Strategy, &e.Type, &e.Day, &e.Price, &e.Amount,
			&e.FromYieldReserve, &e.FromVault, &e.FromCollateral,
			&e.HealthBefore, &e.HealthAfter,
		)
		if err != nil {
			return nil, fmt.Errorf("scan position event row: %w", err)
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position event rows: %w", err)
	}

	return events, nil
}
