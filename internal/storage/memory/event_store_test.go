package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collateral-lab/internal/domain"
	"collateral-lab/internal/storage"
)

func TestPositionEventStore_InsertAndGet(t *testing.T) {
	store := NewPositionEventStore()
	ctx := context.Background()

	events := []*domain.PositionEvent{
		{Strategy: domain.StrategyProtected, Type: domain.EventRebalanceDown, Day: 12, Amount: 50},
		{Strategy: domain.StrategyProtected, Type: domain.EventLeverageUp, Day: 40, Amount: 120},
	}
	require.NoError(t, store.InsertBulk(ctx, "run-1", events))

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.EventRebalanceDown, got[0].Type)
	assert.Equal(t, "run-1", got[0].RunID, "store stamps the run id")
}

func TestPositionEventStore_DuplicateRun(t *testing.T) {
	store := NewPositionEventStore()
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, "run-1", nil))
	err := store.InsertBulk(ctx, "run-1", nil)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestPositionEventStore_UnknownRunIsEmpty(t *testing.T) {
	store := NewPositionEventStore()

	got, err := store.GetByRunID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPositionEventStore_OrderedByDay(t *testing.T) {
	store := NewPositionEventStore()
	ctx := context.Background()

	events := []*domain.PositionEvent{
		{Type: domain.EventLiquidation, Day: 90},
		{Type: domain.EventRebalanceDown, Day: 12},
		{Type: domain.EventRebalanceDown, Day: 12}, // same day keeps insertion order
	}
	require.NoError(t, store.InsertBulk(ctx, "run-1", events))

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 12, got[0].Day)
	assert.Equal(t, 12, got[1].Day)
	assert.Equal(t, 90, got[2].Day)
}
