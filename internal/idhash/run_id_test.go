package idhash

import (
	"testing"

	"collateral-lab/internal/domain"
)

func TestComputeRunID_Deterministic(t *testing.T) {
	cfg := domain.SimulationConfig{Asset: "ETH", Mode: domain.ModeSynthetic, Shape: "crash", TotalDays: 365}
	cfg.Normalize()

	a := ComputeRunID(cfg, 365)
	b := ComputeRunID(cfg, 365)
	if a != b {
		t.Error("identical inputs must hash identically")
	}
	if len(a) != 64 {
		t.Errorf("run id should be 64 hex chars, got %d", len(a))
	}
}

func TestComputeRunID_SensitiveToInputs(t *testing.T) {
	base := domain.SimulationConfig{Asset: "ETH", Shape: "crash", TotalDays: 365}
	base.Normalize()
	baseID := ComputeRunID(base, 365)

	other := base
	other.Shape = "bull"
	if ComputeRunID(other, 365) == baseID {
		t.Error("different shape must change the run id")
	}

	if ComputeRunID(base, 100) == baseID {
		t.Error("different target day must change the run id")
	}

	override := base
	th := 1.30
	override.TargetHealth = &th
	if ComputeRunID(override, 365) == baseID {
		t.Error("threshold override must change the run id")
	}
}
