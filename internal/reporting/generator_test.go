package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"collateral-lab/internal/domain"
	"collateral-lab/internal/storage/memory"
)

func setupTestData(t *testing.T) (*memory.SimulationRunStore, *memory.PositionEventStore) {
	ctx := context.Background()

	runStore := memory.NewSimulationRunStore()
	eventStore := memory.NewPositionEventStore()

	liqDay := 120
	runs := []*domain.SimulationRun{
		{
			RunID: "bbbbbbbbbbbbbbbb", Asset: "ETH", DebtAsset: "USDC",
			Mode: domain.ModeSynthetic, Scenario: "crash", Days: 365,
			DepositValue: 1000, CollateralFactor: 0.8,
			Traditional: domain.StrategySummary{
				Strategy: domain.StrategyTraditional, TotalReturnPct: -62.1, LiquidationDay: &liqDay,
			},
			Protected: domain.StrategySummary{
				Strategy: domain.StrategyProtected, TotalReturnPct: -11.4, RebalanceCount: 7,
			},
			AdvantagePct: 50.7,
			CreatedAt:    time.Unix(1000, 0).UTC(),
		},
		{
			RunID: "aaaaaaaaaaaaaaaa", Asset: "BTC", DebtAsset: "USDC",
			Mode: domain.ModeReplay, Scenario: "2020-2021", Days: 365,
			DepositValue: 1000, CollateralFactor: 0.8,
			Traditional: domain.StrategySummary{Strategy: domain.StrategyTraditional, TotalReturnPct: 42.0},
			Protected: domain.StrategySummary{
				Strategy: domain.StrategyProtected, TotalReturnPct: 55.5, RebalanceCount: 2, LeverageUpCount: 1,
			},
			AdvantagePct: 13.5,
			CreatedAt:    time.Unix(2000, 0).UTC(),
		},
	}
	for _, r := range runs {
		if err := runStore.Insert(ctx, r); err != nil {
			t.Fatalf("Insert run failed: %v", err)
		}
	}

	events := []*domain.PositionEvent{
		{Strategy: domain.StrategyProtected, Type: domain.EventRebalanceDown, Day: 30},
		{Strategy: domain.StrategyProtected, Type: domain.EventRebalanceDown, Day: 31},
		{Strategy: domain.StrategyTraditional, Type: domain.EventLiquidation, Day: 120},
	}
	if err := eventStore.InsertBulk(ctx, "bbbbbbbbbbbbbbbb", events); err != nil {
		t.Fatalf("InsertBulk events failed: %v", err)
	}
	leverage := []*domain.PositionEvent{
		{Strategy: domain.StrategyProtected, Type: domain.EventLeverageUp, Day: 200},
	}
	if err := eventStore.InsertBulk(ctx, "aaaaaaaaaaaaaaaa", leverage); err != nil {
		t.Fatalf("InsertBulk events failed: %v", err)
	}

	return runStore, eventStore
}

func TestGenerator_Generate(t *testing.T) {
	runStore, eventStore := setupTestData(t)

	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	gen := NewGenerator(runStore, eventStore).WithClock(func() time.Time { return fixed })

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.GeneratedAt.Equal(fixed) {
		t.Errorf("expected injected clock time, got %v", report.GeneratedAt)
	}
	if report.RunCount != 2 || report.AssetCount != 2 {
		t.Errorf("expected 2 runs over 2 assets, got %d/%d", report.RunCount, report.AssetCount)
	}

	// Sorted by asset: BTC row first.
	if len(report.Runs) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(report.Runs))
	}
	if report.Runs[0].Asset != "BTC" || report.Runs[1].Asset != "ETH" {
		t.Errorf("rows not sorted by asset: %s, %s", report.Runs[0].Asset, report.Runs[1].Asset)
	}
	if report.Runs[0].RunID != "aaaaaaaaaaaa" {
		t.Errorf("expected truncated run id, got %s", report.Runs[0].RunID)
	}

	ethRow := report.Runs[1]
	if ethRow.TraditionalLiquidationDay == nil || *ethRow.TraditionalLiquidationDay != 120 {
		t.Errorf("expected traditional liquidation day 120, got %v", ethRow.TraditionalLiquidationDay)
	}
	if ethRow.Rebalances != 7 {
		t.Errorf("expected 7 rebalances, got %d", ethRow.Rebalances)
	}

	if report.Events.Rebalances != 2 || report.Events.LeverageUps != 1 || report.Events.Liquidations != 1 {
		t.Errorf("unexpected event totals: %+v", report.Events)
	}

	if report.Advantage.Runs != 2 || report.Advantage.TraditionalLiquidations != 1 {
		t.Errorf("unexpected advantage aggregate: %+v", report.Advantage)
	}
}

func TestGenerator_GenerateEmpty(t *testing.T) {
	gen := NewGenerator(memory.NewSimulationRunStore(), memory.NewPositionEventStore())

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.RunCount != 0 || len(report.Runs) != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
}

func TestRenderMarkdown(t *testing.T) {
	runStore, eventStore := setupTestData(t)
	gen := NewGenerator(runStore, eventStore)

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)

	for _, want := range []string{
		"# Solvency Comparison Report",
		"## Runs",
		"## Protected Advantage",
		"## Events",
		"| aaaaaaaaaaaa | BTC | replay | 2020-2021 |",
		"day 120",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	md := RenderMarkdown(&Report{GeneratedAt: time.Unix(0, 0).UTC()})

	if !strings.Contains(md, "No runs stored.") {
		t.Error("expected empty-report placeholder")
	}
}

func TestRenderCSV(t *testing.T) {
	runStore, eventStore := setupTestData(t)
	gen := NewGenerator(runStore, eventStore)

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	csv := RenderCSV(report.Runs)

	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "run_id,asset,mode,scenario,days,") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[2], "120") {
		t.Errorf("expected liquidation day in ETH row: %s", lines[2])
	}
	// Protected never liquidated: empty field between the two commas.
	if !strings.Contains(lines[2], ",120,,") {
		t.Errorf("expected empty protected liquidation field: %s", lines[2])
	}
}
