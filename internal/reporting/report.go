package reporting

import (
	"time"

	"collateral-lab/internal/metrics"
)

// Report is the rendered view of all stored comparison runs.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunCount    int
	AssetCount  int

	// One row per stored run (sorted by asset, scenario, run_id).
	Runs []RunRow

	// Cross-run distribution of the Protected advantage.
	Advantage metrics.BatchAggregate

	// Totals over the event logs of every run.
	Events EventTotals
}

// RunRow is one line in the run comparison table.
type RunRow struct {
	RunID    string // shortened for display
	Asset    string
	Mode     string
	Scenario string
	Days     int

	TraditionalReturnPct float64
	ProtectedReturnPct   float64
	AdvantagePct         float64

	TraditionalLiquidationDay *int
	ProtectedLiquidationDay   *int

	Rebalances  int
	LeverageUps int
}

// EventTotals sums the structured event log across runs.
type EventTotals struct {
	Rebalances   int
	LeverageUps  int
	Liquidations int
}
