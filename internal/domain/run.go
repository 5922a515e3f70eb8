package domain

import "time"

// StrategySummary condenses one strategy's trajectory for persistence
// and reporting.
type StrategySummary struct {
	Strategy        Strategy
	FinalNetValue   float64
	TotalReturnPct  float64 // (final net value / deposit - 1) * 100
	MaxDrawdownPct  float64 // worst peak-to-trough of net value, percent
	WarningDays     int     // days spent in StatusWarning
	LiquidationDay  *int    // nil if never liquidated
	RebalanceCount  int
	LeverageUpCount int
}

// SimulationRun is one persisted dual-strategy comparison.
// Corresponds to the simulation_runs table in PostgreSQL.
type SimulationRun struct {
	RunID     string // deterministic hash, see idhash
	Asset     string
	DebtAsset string
	Mode      string // ModeReplay | ModeSynthetic
	Scenario  string // shape label (synthetic) or year range (replay)
	Days      int

	DepositValue     float64
	CollateralFactor float64

	Traditional StrategySummary
	Protected   StrategySummary

	// AdvantagePct is the Protected final return minus the
	// Traditional final return, in percentage points.
	AdvantagePct float64

	CreatedAt time.Time
}
