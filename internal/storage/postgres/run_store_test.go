package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collateral-lab/internal/domain"
	"collateral-lab/internal/storage"
)

func createTestRun(runID, asset string, createdAt time.Time) *domain.SimulationRun {
	return &domain.SimulationRun{
		RunID:            runID,
		Asset:            asset,
		DebtAsset:        "USDC",
		Mode:             domain.ModeSynthetic,
		Scenario:         "crash",
		Days:             365,
		DepositValue:     1000,
		CollateralFactor: 0.80,
		Traditional: domain.StrategySummary{
			Strategy:        domain.StrategyTraditional,
			FinalNetValue:   412.5,
			TotalReturnPct:  -58.75,
			MaxDrawdownPct:  61.2,
			WarningDays:     44,
			LiquidationDay:  ptr(201),
			RebalanceCount:  0,
			LeverageUpCount: 0,
		},
		Protected: domain.StrategySummary{
			Strategy:        domain.StrategyProtected,
			FinalNetValue:   913.7,
			TotalReturnPct:  -8.63,
			MaxDrawdownPct:  22.4,
			WarningDays:     12,
			LiquidationDay:  nil,
			RebalanceCount:  9,
			LeverageUpCount: 1,
		},
		AdvantagePct: 50.12,
		CreatedAt:    createdAt,
	}
}

func TestSimulationRunStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSimulationRunStore(pool)

	run := createTestRun("run-001", "ETH", time.Now().UTC().Truncate(time.Microsecond))

	err := store.Insert(ctx, run)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "run-001")
	require.NoError(t, err)

	assert.Equal(t, run.RunID, retrieved.RunID)
	assert.Equal(t, run.Asset, retrieved.Asset)
	assert.Equal(t, run.DebtAsset, retrieved.DebtAsset)
	assert.Equal(t, run.Mode, retrieved.Mode)
	assert.Equal(t, run.Scenario, retrieved.Scenario)
	assert.Equal(t, run.Days, retrieved.Days)
	assert.InDelta(t, run.DepositValue, retrieved.DepositValue, 0.0001)
	assert.InDelta(t, run.CollateralFactor, retrieved.CollateralFactor, 0.0001)

	assert.Equal(t, domain.StrategyTraditional, retrieved.Traditional.Strategy)
	assert.InDelta(t, run.Traditional.FinalNetValue, retrieved.Traditional.FinalNetValue, 0.0001)
	assert.InDelta(t, run.Traditional.TotalReturnPct, retrieved.Traditional.TotalReturnPct, 0.0001)
	assert.InDelta(t, run.Traditional.MaxDrawdownPct, retrieved.Traditional.MaxDrawdownPct, 0.0001)
	assert.Equal(t, run.Traditional.WarningDays, retrieved.Traditional.WarningDays)
	require.NotNil(t, retrieved.Traditional.LiquidationDay)
	assert.Equal(t, 201, *retrieved.Traditional.LiquidationDay)

	assert.Equal(t, domain.StrategyProtected, retrieved.Protected.Strategy)
	assert.InDelta(t, run.Protected.FinalNetValue, retrieved.Protected.FinalNetValue, 0.0001)
	assert.Nil(t, retrieved.Protected.LiquidationDay)
	assert.Equal(t, run.Protected.RebalanceCount, retrieved.Protected.RebalanceCount)
	assert.Equal(t, run.Protected.LeverageUpCount, retrieved.Protected.LeverageUpCount)

	assert.InDelta(t, run.AdvantagePct, retrieved.AdvantagePct, 0.0001)
	assert.True(t, run.CreatedAt.Equal(retrieved.CreatedAt))
}

func TestSimulationRunStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSimulationRunStore(pool)

	run := createTestRun("run-dup", "ETH", time.Now().UTC())

	err := store.Insert(ctx, run)
	require.NoError(t, err)

	err = store.Insert(ctx, run)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSimulationRunStore_InsertInvalid(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSimulationRunStore(pool)

	err := store.Insert(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.Insert(ctx, &domain.SimulationRun{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestSimulationRunStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSimulationRunStore(pool)

	_, err := store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSimulationRunStore_GetByAsset(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSimulationRunStore(pool)

	base := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, store.Insert(ctx, createTestRun("run-b", "ETH", base.Add(time.Second))))
	require.NoError(t, store.Insert(ctx, createTestRun("run-a", "ETH", base)))
	require.NoError(t, store.Insert(ctx, createTestRun("run-c", "BTC", base)))

	runs, err := store.GetByAsset(ctx, "ETH")
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Ordered by created_at, then run_id
	assert.Equal(t, "run-a", runs[0].RunID)
	assert.Equal(t, "run-b", runs[1].RunID)
}

func TestSimulationRunStore_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSimulationRunStore(pool)

	runs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)

	base := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, store.Insert(ctx, createTestRun("run-2", "ETH", base)))
	require.NoError(t, store.Insert(ctx, createTestRun("run-1", "BTC", base)))

	runs, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, "run-2", runs[1].RunID)
}
