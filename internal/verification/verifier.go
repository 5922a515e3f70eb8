// Package verification implements stored-run verification. The engine
// is deterministic, so re-simulating a configuration must reproduce the
// persisted summary exactly; any divergence indicates data corruption
// or an engine change that invalidates stored results.
package verification

import (
	"fmt"
	"math"

	"collateral-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-9

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the result of verifying a single run.
type VerificationResult struct {
	RunID       string
	Match       bool
	Divergences []FieldDivergence
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalRuns     int
	MatchedRuns   int
	DivergentRuns int
	Results       []VerificationResult
}

// Add appends a result and updates the counters.
func (r *VerificationReport) Add(result VerificationResult) {
	r.TotalRuns++
	if result.Match {
		r.MatchedRuns++
	} else {
		r.DivergentRuns++
	}
	r.Results = append(r.Results, result)
}

// CompareRuns compares a stored run against a replayed one and returns
// divergences. CreatedAt is excluded: it records insertion time, not
// simulation output.
func CompareRuns(stored, replayed *domain.SimulationRun) []FieldDivergence {
	var divergences []FieldDivergence

	if stored.RunID != replayed.RunID {
		divergences = append(divergences, FieldDivergence{
			Field:    "RunID",
			Expected: stored.RunID,
			Actual:   replayed.RunID,
		})
	}

	if stored.Asset != replayed.Asset {
		divergences = append(divergences, FieldDivergence{
			Field:    "Asset",
			Expected: stored.Asset,
			Actual:   replayed.Asset,
		})
	}

	if stored.DebtAsset != replayed.DebtAsset {
		divergences = append(divergences, FieldDivergence{
			Field:    "DebtAsset",
			Expected: stored.DebtAsset,
			Actual:   replayed.DebtAsset,
		})
	}

	if stored.Mode != replayed.Mode {
		divergences = append(divergences, FieldDivergence{
			Field:    "Mode",
			Expected: stored.Mode,
			Actual:   replayed.Mode,
		})
	}

	if stored.Scenario != replayed.Scenario {
		divergences = append(divergences, FieldDivergence{
			Field:    "Scenario",
			Expected: stored.Scenario,
			Actual:   replayed.Scenario,
		})
	}

	if stored.Days != replayed.Days {
		divergences = append(divergences, FieldDivergence{
			Field:    "Days",
			Expected: stored.Days,
			Actual:   replayed.Days,
		})
	}

	if !floatEquals(stored.DepositValue, replayed.DepositValue) {
		divergences = append(divergences, FieldDivergence{
			Field:    "DepositValue",
			Expected: stored.DepositValue,
			Actual:   replayed.DepositValue,
		})
	}

	if !floatEquals(stored.CollateralFactor, replayed.CollateralFactor) {
		divergences = append(divergences, FieldDivergence{
			Field:    "CollateralFactor",
			Expected: stored.CollateralFactor,
			Actual:   replayed.CollateralFactor,
		})
	}

	if !floatEquals(stored.AdvantagePct, replayed.AdvantagePct) {
		divergences = append(divergences, FieldDivergence{
			Field:    "AdvantagePct",
			Expected: stored.AdvantagePct,
			Actual:   replayed.AdvantagePct,
		})
	}

	divergences = append(divergences, compareSummaries("Traditional", stored.Traditional, replayed.Traditional)...)
	divergences = append(divergences, compareSummaries("Protected", stored.Protected, replayed.Protected)...)

	return divergences
}

// compareSummaries compares one strategy's stored and replayed summary.
func compareSummaries(prefix string, stored, replayed domain.StrategySummary) []FieldDivergence {
	var divergences []FieldDivergence

	field := func(name string) string { return prefix + "." + name }

	if stored.Strategy != replayed.Strategy {
		divergences = append(divergences, FieldDivergence{
			Field:    field("Strategy"),
			Expected: stored.Strategy,
			Actual:   replayed.Strategy,
		})
	}

	if !floatEquals(stored.FinalNetValue, replayed.FinalNetValue) {
		divergences = append(divergences, FieldDivergence{
			Field:    field("FinalNetValue"),
			Expected: stored.FinalNetValue,
			Actual:   replayed.FinalNetValue,
		})
	}

	if !floatEquals(stored.TotalReturnPct, replayed.TotalReturnPct) {
		divergences = append(divergences, FieldDivergence{
			Field:    field("TotalReturnPct"),
			Expected: stored.TotalReturnPct,
			Actual:   replayed.TotalReturnPct,
		})
	}

	if !floatEquals(stored.MaxDrawdownPct, replayed.MaxDrawdownPct) {
		divergences = append(divergences, FieldDivergence{
			Field:    field("MaxDrawdownPct"),
			Expected: stored.MaxDrawdownPct,
			Actual:   replayed.MaxDrawdownPct,
		})
	}

	if stored.WarningDays != replayed.WarningDays {
		divergences = append(divergences, FieldDivergence{
			Field:    field("WarningDays"),
			Expected: stored.WarningDays,
			Actual:   replayed.WarningDays,
		})
	}

	if !intPtrEquals(stored.LiquidationDay, replayed.LiquidationDay) {
		divergences = append(divergences, FieldDivergence{
			Field:    field("LiquidationDay"),
			Expected: stored.LiquidationDay,
			Actual:   replayed.LiquidationDay,
		})
	}

	if stored.RebalanceCount != replayed.RebalanceCount {
		divergences = append(divergences, FieldDivergence{
			Field:    field("RebalanceCount"),
			Expected: stored.RebalanceCount,
			Actual:   replayed.RebalanceCount,
		})
	}

	if stored.LeverageUpCount != replayed.LeverageUpCount {
		divergences = append(divergences, FieldDivergence{
			Field:    field("LeverageUpCount"),
			Expected: stored.LeverageUpCount,
			Actual:   replayed.LeverageUpCount,
		})
	}

	return divergences
}

// CheckTrajectory validates structural invariants of one trajectory:
// contiguous day indexing, liquidation as an absorbing state with
// zeroed exposure, non-decreasing action counters and events pointing
// at simulated days. Returned divergences use Expected for the
// invariant and Actual for the observed value.
func CheckTrajectory(t *domain.Trajectory) []FieldDivergence {
	var divergences []FieldDivergence

	if len(t.Days) == 0 {
		return []FieldDivergence{{Field: "Days", Expected: "at least the initial state", Actual: 0}}
	}

	liquidated := false
	for i, day := range t.Days {
		if day.Day != i {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Days[%d].Day", i),
				Expected: i,
				Actual:   day.Day,
			})
		}
		if day.Strategy != t.Strategy {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Days[%d].Strategy", i),
				Expected: t.Strategy,
				Actual:   day.Strategy,
			})
		}

		if liquidated {
			if day.Status != domain.StatusLiquidated {
				divergences = append(divergences, FieldDivergence{
					Field:    fmt.Sprintf("Days[%d].Status", i),
					Expected: domain.StatusLiquidated,
					Actual:   day.Status,
				})
			}
			if day.CollateralAmount != 0 || day.DebtAmount != 0 {
				divergences = append(divergences, FieldDivergence{
					Field:    fmt.Sprintf("Days[%d]", i),
					Expected: "zero collateral and debt after liquidation",
					Actual:   fmt.Sprintf("collateral=%g debt=%g", day.CollateralAmount, day.DebtAmount),
				})
			}
		}
		if day.Status == domain.StatusLiquidated {
			liquidated = true
		}

		if i > 0 {
			prev := t.Days[i-1]
			if day.RebalanceCount < prev.RebalanceCount || day.LeverageUpCount < prev.LeverageUpCount {
				divergences = append(divergences, FieldDivergence{
					Field:    fmt.Sprintf("Days[%d]", i),
					Expected: "non-decreasing action counters",
					Actual:   fmt.Sprintf("rebalances %d->%d leverageUps %d->%d", prev.RebalanceCount, day.RebalanceCount, prev.LeverageUpCount, day.LeverageUpCount),
				})
			}
		}
	}

	for i, e := range t.Events {
		if e.Day < 0 || e.Day >= len(t.Days) {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Events[%d].Day", i),
				Expected: fmt.Sprintf("within [0, %d]", len(t.Days)-1),
				Actual:   e.Day,
			})
		}
		if e.Strategy != t.Strategy {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Events[%d].Strategy", i),
				Expected: t.Strategy,
				Actual:   e.Strategy,
			})
		}
	}

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}

// intPtrEquals compares two *int values.
// Returns true if both are nil, or both are non-nil and equal.
func intPtrEquals(a, b *int) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
