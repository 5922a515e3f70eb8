// Package pricing supplies the price path for the simulation engine,
// either by replaying recorded daily series or by synthesizing a path
// from a named shape. All providers are deterministic: the same inputs
// always yield the same path, and any day is computable independently.
package pricing

import (
	"fmt"

	"collateral-lab/internal/domain"
)

// Provider yields a price for any simulated day. Malformed day indices
// clamp to the nearest valid day rather than erroring; the engine must
// remain callable from interactive controls that can transiently
// produce extreme values.
type Provider interface {
	// PriceAt returns the price for the given day, clamping
	// out-of-range days.
	PriceAt(day int) float64

	// Horizon returns the number of days the path covers.
	Horizon() int
}

// FromConfig builds a Provider for the config's data mode. Replay mode
// uses the built-in recorded series through the supplied cache; pass a
// pre-loaded series via NewReplayFromTicks to use stored data instead.
func FromConfig(cfg domain.SimulationConfig, cache *SeriesCache) (Provider, error) {
	switch cfg.Mode {
	case domain.ModeReplay:
		series, err := cache.DailySeries(cfg.Asset, cfg.YearStart, cfg.YearEnd)
		if err != nil {
			return nil, fmt.Errorf("replay series for %s: %w", cfg.Asset, err)
		}
		return NewReplay(series, cfg.BasePrice), nil
	case domain.ModeSynthetic, "":
		return NewSynthetic(cfg.BasePrice, cfg.TargetChangePct, cfg.TotalDays, cfg.Shape, cfg.VolatilityTier)
	default:
		return nil, fmt.Errorf("unknown data mode %q", cfg.Mode)
	}
}
