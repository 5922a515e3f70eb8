package domain

import "math"

// Strategy identifies which management policy drives a position.
type Strategy string

// Strategy constants.
const (
	StrategyTraditional Strategy = "TRADITIONAL"
	StrategyProtected   Strategy = "PROTECTED"
)

// Status is the derived solvency state of a position.
type Status string

// Status constants.
const (
	StatusHealthy    Status = "healthy"
	StatusWarning    Status = "warning"
	StatusLiquidated Status = "liquidated"
)

// Solvency constants.
const (
	// LiquidationThreshold is the health ratio at or below which a
	// position is liquidated.
	LiquidationThreshold = 1.0

	// HealthCap is the finite sentinel reported when debt is zero.
	HealthCap = 999.0
)

// Position is the per-day state of one strategy's position.
// It is produced by a simulator and never mutated externally.
type Position struct {
	Strategy Strategy
	Day      int
	Price    float64

	CollateralAmount float64 // collateral asset tokens held
	CollateralValue  float64 // CollateralAmount * Price
	DebtAmount       float64 // outstanding borrowed value
	HealthRatio      float64 // effective collateral / debt, capped at HealthCap
	Status           Status

	// Protected strategy only.
	YieldReserve float64 // accrued supply yield not yet applied to debt
	VaultBalance float64 // borrowed value parked in the yield vault

	// Cumulative supply yield earned on collateral, for reporting.
	// Frozen at liquidation like all bookkeeping.
	SupplyYieldAccrued float64

	// Traditional strategy only: borrowed funds compounding on the side.
	BorrowedFundsBalance float64

	RebalanceCount  int
	LeverageUpCount int
}

// HealthRatioOf computes the health ratio for the given collateral value,
// collateral factor and debt. A zero or negative debt yields HealthCap
// rather than infinity so the value stays display-safe.
func HealthRatioOf(collateralValue, collateralFactor, debt float64) float64 {
	if debt <= 0 {
		return HealthCap
	}
	h := collateralValue * collateralFactor / debt
	if h > HealthCap || math.IsInf(h, 1) || math.IsNaN(h) {
		return HealthCap
	}
	return h
}

// StatusFor derives the position status from a health ratio and the
// strategy's current target health. Status is never set directly.
func StatusFor(health, targetHealth float64) Status {
	switch {
	case health <= LiquidationThreshold:
		return StatusLiquidated
	case health >= targetHealth:
		return StatusHealthy
	default:
		return StatusWarning
	}
}

// NetValue is the reporting total for the position:
// (collateral value - debt) plus the strategy's side balance
// (vault for Protected, borrowed-funds balance for Traditional).
func (p *Position) NetValue() float64 {
	equity := p.CollateralValue - p.DebtAmount
	if p.Strategy == StrategyProtected {
		return equity + p.VaultBalance
	}
	return equity + p.BorrowedFundsBalance
}

// Liquidated reports whether the position has entered the absorbing
// liquidated state.
func (p *Position) Liquidated() bool {
	return p.Status == StatusLiquidated
}
