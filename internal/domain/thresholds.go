package domain

import "math"

// ControlThresholds are the three health-ratio bands that drive the
// Protected strategy for one day: rebalance-down trigger, recovery
// target, and leverage-up trigger.
//
// Invariant: 1.0 < MinHealth < TargetHealth <= MaxHealth, where
// MaxHealth may be +Inf meaning leverage-up is disabled for the
// current regime.
type ControlThresholds struct {
	MinHealth    float64
	TargetHealth float64
	MaxHealth    float64
}

// LeverageDisabled reports whether leverage-up is switched off for
// this threshold set.
func (t ControlThresholds) LeverageDisabled() bool {
	return math.IsInf(t.MaxHealth, 1)
}

// Ordered reports whether the tuple satisfies the threshold ordering
// invariant.
func (t ControlThresholds) Ordered() bool {
	if t.MinHealth <= LiquidationThreshold {
		return false
	}
	if t.MinHealth >= t.TargetHealth {
		return false
	}
	return t.TargetHealth <= t.MaxHealth
}
