package thresholds

import (
	"math"
	"testing"

	"collateral-lab/internal/domain"
)

func TestTierFor_Selection(t *testing.T) {
	cases := []struct {
		vol  float64
		want string
	}{
		{5, "calm"},
		{29.9, "calm"},
		{30, "calm"}, // boundary belongs to the tighter tier
		{30.01, "normal"},
		{60, "normal"},
		{99, "elevated"},
		{100, "elevated"},
		{101, "extreme"},
		{100000, "extreme"},
	}

	for _, tc := range cases {
		if got := TierFor(tc.vol); got.Name != tc.want {
			t.Errorf("TierFor(%v) = %s, want %s", tc.vol, got.Name, tc.want)
		}
	}
}

func TestTierTable_OrderingInvariant(t *testing.T) {
	prevCeiling := 0.0
	for _, tier := range defaultTiers {
		if tier.CeilingPct <= prevCeiling {
			t.Errorf("tier %s: ceilings must be strictly ascending", tier.Name)
		}
		prevCeiling = tier.CeilingPct
		if !tier.Bands.Ordered() {
			t.Errorf("tier %s: bands %+v violate ordering invariant", tier.Name, tier.Bands)
		}
	}

	last := defaultTiers[len(defaultTiers)-1]
	if !math.IsInf(last.CeilingPct, 1) {
		t.Error("last tier must have an infinite ceiling")
	}
	if !last.Bands.LeverageDisabled() {
		t.Error("last tier must disable leverage-up")
	}
}

func TestResolve_DynamicTierBeatsAssetBase(t *testing.T) {
	// LINK's static profile bars leverage, but with volatility data
	// available the dynamic tier takes priority.
	got := Resolve(20, "LINK", domain.ThresholdOverrides{})
	want := TierFor(20).Bands
	if got != want {
		t.Errorf("Resolve with vol data = %+v, want dynamic tier %+v", got, want)
	}
}

func TestResolve_AssetBaseWithoutVolData(t *testing.T) {
	got := Resolve(0, "LINK", domain.ThresholdOverrides{})
	if !got.LeverageDisabled() {
		t.Error("LINK static profile should disable leverage when no vol data")
	}
	if got.TargetHealth != 1.30 {
		t.Errorf("TargetHealth = %v, want 1.30", got.TargetHealth)
	}
}

func TestResolve_UnknownAssetFallsBackToGeneric(t *testing.T) {
	got := Resolve(0, "PEPE", domain.ThresholdOverrides{})
	if got != genericDefault {
		t.Errorf("unknown asset should use generic default, got %+v", got)
	}
}

func TestResolve_UserOverrideWinsOverAll(t *testing.T) {
	target := 1.45
	got := Resolve(20, "ETH", domain.ThresholdOverrides{TargetHealth: &target})
	if got.TargetHealth != 1.45 {
		t.Errorf("TargetHealth = %v, want user override 1.45", got.TargetHealth)
	}
	// Non-overridden fields still come from the dynamic tier.
	if got.MinHealth != TierFor(20).Bands.MinHealth {
		t.Errorf("MinHealth = %v, want tier value", got.MinHealth)
	}
}

func TestResolve_AlwaysOrdered(t *testing.T) {
	// An override that crosses a neighbor shifts the dependent
	// threshold rather than yielding an invalid tuple.
	lowTarget := 1.02
	got := Resolve(20, "ETH", domain.ThresholdOverrides{TargetHealth: &lowTarget})
	if !got.Ordered() {
		t.Errorf("resolved thresholds %+v not ordered", got)
	}

	hugeMin := 3.0
	got = Resolve(20, "ETH", domain.ThresholdOverrides{MinHealth: &hugeMin})
	if !got.Ordered() {
		t.Errorf("resolved thresholds %+v not ordered", got)
	}

	vols := []float64{0, 1, 29, 30, 31, 59, 61, 100, 150, 1000}
	for _, v := range vols {
		got := Resolve(v, "ETH", domain.ThresholdOverrides{})
		if !got.Ordered() {
			t.Errorf("vol %v: resolved thresholds %+v not ordered", v, got)
		}
	}
}
