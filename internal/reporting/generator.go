package reporting

import (
	"context"
	"sort"
	"time"

	"collateral-lab/internal/domain"
	"collateral-lab/internal/metrics"
	"collateral-lab/internal/storage"
)

// runIDDisplayLen truncates run ids for table readability.
const runIDDisplayLen = 12

// Generator produces reports from stored runs.
type Generator struct {
	runStore   storage.SimulationRunStore
	eventStore storage.PositionEventStore
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.SimulationRunStore, eventStore storage.PositionEventStore) *Generator {
	return &Generator{
		runStore:   runStore,
		eventStore: eventStore,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the full report over every stored run.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	runs, err := g.runStore.List(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]RunRow, 0, len(runs))
	assetSet := make(map[string]struct{})
	var totals EventTotals

	for _, run := range runs {
		assetSet[run.Asset] = struct{}{}
		rows = append(rows, runRow(run))

		events, err := g.eventStore.GetByRunID(ctx, run.RunID)
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			switch e.Type {
			case domain.EventRebalanceDown:
				totals.Rebalances++
			case domain.EventLeverageUp:
				totals.LeverageUps++
			case domain.EventLiquidation:
				totals.Liquidations++
			}
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Asset != rows[j].Asset {
			return rows[i].Asset < rows[j].Asset
		}
		if rows[i].Scenario != rows[j].Scenario {
			return rows[i].Scenario < rows[j].Scenario
		}
		return rows[i].RunID < rows[j].RunID
	})

	return &Report{
		GeneratedAt: g.now(),
		RunCount:    len(runs),
		AssetCount:  len(assetSet),
		Runs:        rows,
		Advantage:   metrics.Aggregate(runs),
		Events:      totals,
	}, nil
}

func runRow(run *domain.SimulationRun) RunRow {
	id := run.RunID
	if len(id) > runIDDisplayLen {
		id = id[:runIDDisplayLen]
	}

	return RunRow{
		RunID:                     id,
		Asset:                     run.Asset,
		Mode:                      run.Mode,
		Scenario:                  run.Scenario,
		Days:                      run.Days,
		TraditionalReturnPct:      run.Traditional.TotalReturnPct,
		ProtectedReturnPct:        run.Protected.TotalReturnPct,
		AdvantagePct:              run.AdvantagePct,
		TraditionalLiquidationDay: run.Traditional.LiquidationDay,
		ProtectedLiquidationDay:   run.Protected.LiquidationDay,
		Rebalances:                run.Protected.RebalanceCount,
		LeverageUps:               run.Protected.LeverageUpCount,
	}
}
