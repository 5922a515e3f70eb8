// Package idhash derives deterministic identifiers for simulation
// runs so that re-running an identical configuration produces the
// same row rather than a duplicate.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"collateral-lab/internal/domain"
)

// ComputeRunID computes a deterministic run_id using SHA256 over the
// configuration fields that affect the trajectory, plus the target
// day. Returns a hex-encoded hash (64 characters).
func ComputeRunID(cfg domain.SimulationConfig, targetDay int) string {
	var (
		target = ptrField(cfg.TargetHealth)
		minH   = ptrField(cfg.MinHealth)
		maxH   = ptrField(cfg.MaxHealth)
	)

	data := fmt.Sprintf("%s|%s|%s|%d|%.8f|%.8f|%s|%s|%s|%.8f|%.8f|%.8f|%d|%d|%.8f|%d",
		cfg.Asset,
		cfg.DebtAsset,
		cfg.Mode,
		cfg.TotalDays,
		cfg.DepositValue,
		cfg.CollateralFactor,
		target,
		minH,
		maxH,
		cfg.BorrowAPR,
		cfg.SupplyAPY,
		cfg.VaultAPY,
		cfg.YearStart,
		cfg.YearEnd,
		cfg.TargetChangePct,
		targetDay,
	)
	data += "|" + cfg.VolatilityTier + "|" + cfg.Shape + fmt.Sprintf("|%.8f", cfg.BasePrice)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ptrField renders an optional override distinguishably from zero.
func ptrField(v *float64) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%.8f", *v)
}
