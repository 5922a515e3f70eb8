package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collateral-lab/internal/domain"
	"collateral-lab/internal/storage"
)

func createTestEvent(day int, eventType domain.EventType) *domain.PositionEvent {
	return &domain.PositionEvent{
		Strategy:         domain.StrategyProtected,
		Type:             eventType,
		Day:              day,
		Price:            87.5,
		Amount:           120.3,
		FromYieldReserve: 20.3,
		FromVault:        100.0,
		FromCollateral:   0,
		HealthBefore:     1.02,
		HealthAfter:      1.15,
	}
}

func TestPositionEventStore_InsertBulkAndGetByRunID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPositionEventStore(pool)

	events := []*domain.PositionEvent{
		createTestEvent(5, domain.EventRebalanceDown),
		createTestEvent(5, domain.EventRebalanceDown),
		createTestEvent(12, domain.EventLeverageUp),
	}

	err := store.InsertBulk(ctx, "run-ev-1", events)
	require.NoError(t, err)

	retrieved, err := store.GetByRunID(ctx, "run-ev-1")
	require.NoError(t, err)
	require.Len(t, retrieved, 3)

	for i, e := range retrieved {
		assert.Equal(t, "run-ev-1", e.RunID)
		assert.Equal(t, events[i].Type, e.Type)
		assert.Equal(t, events[i].Day, e.Day)
		assert.InDelta(t, events[i].Price, e.Price, 0.0001)
		assert.InDelta(t, events[i].Amount, e.Amount, 0.0001)
		assert.InDelta(t, events[i].FromYieldReserve, e.FromYieldReserve, 0.0001)
		assert.InDelta(t, events[i].FromVault, e.FromVault, 0.0001)
		assert.InDelta(t, events[i].HealthBefore, e.HealthBefore, 0.0001)
		assert.InDelta(t, events[i].HealthAfter, e.HealthAfter, 0.0001)
	}
}

func TestPositionEventStore_InsertBulkDuplicateRun(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPositionEventStore(pool)

	events := []*domain.PositionEvent{createTestEvent(1, domain.EventLiquidation)}

	err := store.InsertBulk(ctx, "run-ev-dup", events)
	require.NoError(t, err)

	err = store.InsertBulk(ctx, "run-ev-dup", events)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Failed second insert must not add rows
	retrieved, err := store.GetByRunID(ctx, "run-ev-dup")
	require.NoError(t, err)
	assert.Len(t, retrieved, 1)
}

func TestPositionEventStore_InsertBulkEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPositionEventStore(pool)

	err := store.InsertBulk(ctx, "run-ev-empty", nil)
	require.NoError(t, err)

	err = store.InsertBulk(ctx, "", []*domain.PositionEvent{createTestEvent(0, domain.EventLiquidation)})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestPositionEventStore_GetByRunIDEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPositionEventStore(pool)

	retrieved, err := store.GetByRunID(ctx, "missing-run")
	require.NoError(t, err)
	assert.Empty(t, retrieved)
}
