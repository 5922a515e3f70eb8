package sweep

import (
	"context"
	"testing"

	"collateral-lab/internal/simulation"
	"collateral-lab/internal/storage/memory"
	"collateral-lab/internal/verification"
)

func newTestRunner(verify bool) (*Runner, *memory.SimulationRunStore) {
	runStore := memory.NewSimulationRunStore()
	eventStore := memory.NewPositionEventStore()

	opts := Options{
		Runner: simulation.NewRunner(simulation.RunnerOptions{
			RunStore:   runStore,
			EventStore: eventStore,
		}),
	}
	if verify {
		opts.Verifier = verification.NewReplayVerifier(runStore, eventStore)
	}
	return NewRunner(opts), runStore
}

func smallGrid() Grid {
	return Grid{
		Assets:  []string{"ETH"},
		Shapes:  []string{"crash", "bull"},
		Changes: []float64{-40, 60},
		Days:    90,
	}
}

func TestGrid_Configs(t *testing.T) {
	grid := smallGrid()

	configs := grid.Configs()
	if len(configs) != grid.Size() {
		t.Fatalf("expected %d configs, got %d", grid.Size(), len(configs))
	}

	// Asset-major expansion: first cell is the first shape and change.
	first := configs[0]
	if first.Asset != "ETH" || first.Shape != "crash" || first.TargetChangePct != -40 {
		t.Fatalf("unexpected first config: %+v", first)
	}
	if first.TotalDays != 90 {
		t.Fatalf("expected horizon 90, got %d", first.TotalDays)
	}
}

func TestRunner_RunExecutesEveryCell(t *testing.T) {
	runner, runStore := newTestRunner(false)
	grid := smallGrid()

	results, err := runner.Run(context.Background(), grid)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(results.Cells) != grid.Size() {
		t.Fatalf("expected %d cells, got %d", grid.Size(), len(results.Cells))
	}
	for _, cell := range results.Cells {
		if cell.Run == nil || cell.Run.RunID == "" {
			t.Fatalf("cell %s/%s has no stored run", cell.Config.Shape, cell.Config.Asset)
		}
		if cell.Verification != nil {
			t.Fatal("verification attached without a verifier")
		}
	}

	stored, err := runStore.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stored) != grid.Size() {
		t.Fatalf("expected %d stored runs, got %d", grid.Size(), len(stored))
	}

	if results.Aggregate.Runs != grid.Size() {
		t.Fatalf("expected aggregate over %d runs, got %d", grid.Size(), results.Aggregate.Runs)
	}
}

func TestRunner_RunIsIdempotent(t *testing.T) {
	runner, runStore := newTestRunner(false)
	grid := smallGrid()
	ctx := context.Background()

	first, err := runner.Run(ctx, grid)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := runner.Run(ctx, grid)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	for i := range first.Cells {
		if first.Cells[i].Run.RunID != second.Cells[i].Run.RunID {
			t.Fatalf("cell %d produced different run ids", i)
		}
	}

	stored, err := runStore.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stored) != grid.Size() {
		t.Fatalf("expected %d stored runs after rerun, got %d", grid.Size(), len(stored))
	}
}

func TestRunner_RunWithVerification(t *testing.T) {
	runner, _ := newTestRunner(true)
	grid := smallGrid()

	results, err := runner.Run(context.Background(), grid)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if results.Verification.TotalRuns != grid.Size() {
		t.Fatalf("expected %d verified runs, got %d", grid.Size(), results.Verification.TotalRuns)
	}
	if results.Verification.DivergentRuns != 0 {
		t.Fatalf("expected no divergent runs, got %d: %+v",
			results.Verification.DivergentRuns, results.Verification.Results)
	}
	for _, cell := range results.Cells {
		if cell.Verification == nil || !cell.Verification.Match {
			t.Fatalf("cell %s/%+.0f%% failed verification", cell.Config.Shape, cell.Config.TargetChangePct)
		}
	}
}

func TestRunner_RunCancelled(t *testing.T) {
	runner, _ := newTestRunner(false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := runner.Run(ctx, smallGrid()); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
