// Package thresholds maps observed volatility and asset identity to
// the control thresholds used by the Protected strategy.
package thresholds

import (
	"math"

	"collateral-lab/internal/domain"
)

// Tier is one volatility regime with its control thresholds. Tiers are
// ordered by ascending ceiling; the last tier has a +Inf ceiling and
// is the most conservative, with leverage-up disabled.
type Tier struct {
	Name       string
	CeilingPct float64 // annualized volatility ceiling, percent
	Bands      domain.ControlThresholds
}

// defaultTiers is the dynamic tier table. Higher realized volatility
// buys earlier rebalancing and a higher recovery target.
var defaultTiers = []Tier{
	{Name: "calm", CeilingPct: 30, Bands: domain.ControlThresholds{MinHealth: 1.05, TargetHealth: 1.15, MaxHealth: 1.40}},
	{Name: "normal", CeilingPct: 60, Bands: domain.ControlThresholds{MinHealth: 1.10, TargetHealth: 1.25, MaxHealth: 1.60}},
	{Name: "elevated", CeilingPct: 100, Bands: domain.ControlThresholds{MinHealth: 1.20, TargetHealth: 1.40, MaxHealth: 2.00}},
	{Name: "extreme", CeilingPct: math.Inf(1), Bands: domain.ControlThresholds{MinHealth: 1.30, TargetHealth: 1.60, MaxHealth: math.Inf(1)}},
}

// assetBase holds static per-asset threshold sets used when no
// volatility data is available. Riskier collateral assets are barred
// from leverage-up outright.
var assetBase = map[string]domain.ControlThresholds{
	"ETH":  {MinHealth: 1.05, TargetHealth: 1.15, MaxHealth: 1.50},
	"BTC":  {MinHealth: 1.05, TargetHealth: 1.15, MaxHealth: 1.50},
	"LINK": {MinHealth: 1.15, TargetHealth: 1.30, MaxHealth: math.Inf(1)},
	"UNI":  {MinHealth: 1.15, TargetHealth: 1.30, MaxHealth: math.Inf(1)},
}

// genericDefault applies when neither volatility data nor a static
// asset profile exists.
var genericDefault = domain.ControlThresholds{
	MinHealth:    domain.DefaultMinHealth,
	TargetHealth: domain.DefaultTargetHealth,
	MaxHealth:    domain.DefaultMaxHealth,
}

// LeverageVolCeilingPct is the volatility gate for leverage-up: no new
// leverage is added while trailing volatility is at or above this.
const LeverageVolCeilingPct = 60.0

// Resolve returns the day's control thresholds with three-level
// precedence: explicit user override per field, then the dynamic
// volatility tier whenever volatility data is available, then the
// static per-asset base set. A volatility value exactly at a tier
// boundary belongs to the lower (tighter) tier.
func Resolve(volatilityPct float64, asset string, overrides domain.ThresholdOverrides) domain.ControlThresholds {
	var bands domain.ControlThresholds
	switch {
	case volatilityPct > 0:
		bands = TierFor(volatilityPct).Bands
	default:
		var ok bool
		bands, ok = assetBase[asset]
		if !ok {
			bands = genericDefault
		}
	}

	if overrides.MinHealth != nil {
		bands.MinHealth = *overrides.MinHealth
	}
	if overrides.TargetHealth != nil {
		bands.TargetHealth = *overrides.TargetHealth
	}
	if overrides.MaxHealth != nil {
		bands.MaxHealth = *overrides.MaxHealth
	}

	return reorder(bands)
}

// TierFor selects the tightest tier whose ceiling is at or above the
// observed volatility.
func TierFor(volatilityPct float64) Tier {
	for _, tier := range defaultTiers {
		if volatilityPct <= tier.CeilingPct {
			return tier
		}
	}
	return defaultTiers[len(defaultTiers)-1]
}

// AssetBase returns the static base thresholds for an asset, or
// ok=false if the asset has no profile.
func AssetBase(asset string) (domain.ControlThresholds, bool) {
	bands, ok := assetBase[asset]
	return bands, ok
}

// reorder shifts dependent thresholds so the resolved tuple always
// satisfies 1.0 < min < target <= max, even when an override pushed a
// single field across its neighbor.
func reorder(b domain.ControlThresholds) domain.ControlThresholds {
	if b.TargetHealth <= domain.LiquidationThreshold {
		b.TargetHealth = domain.LiquidationThreshold + 0.05
	}
	if b.MinHealth <= domain.LiquidationThreshold {
		b.MinHealth = domain.LiquidationThreshold + 0.01
	}
	if b.MinHealth >= b.TargetHealth {
		b.MinHealth = (b.TargetHealth + domain.LiquidationThreshold) / 2
	}
	if !math.IsInf(b.MaxHealth, 1) && b.MaxHealth <= b.TargetHealth {
		b.MaxHealth = b.TargetHealth + 0.25
	}
	return b
}
