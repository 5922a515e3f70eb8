// Package metrics condenses trajectories into per-run summaries and
// cross-scenario aggregates for the comparison/reporting layer.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"collateral-lab/internal/domain"
)

// Summarize condenses one strategy's trajectory.
func Summarize(traj *domain.Trajectory, depositValue float64) domain.StrategySummary {
	final := traj.Final()

	s := domain.StrategySummary{
		Strategy:        traj.Strategy,
		FinalNetValue:   final.NetValue(),
		RebalanceCount:  final.RebalanceCount,
		LeverageUpCount: final.LeverageUpCount,
	}
	if depositValue > 0 {
		s.TotalReturnPct = (s.FinalNetValue/depositValue - 1) * 100
	}

	netValues := make([]float64, len(traj.Days))
	for i := range traj.Days {
		pos := &traj.Days[i]
		netValues[i] = pos.NetValue()
		if pos.Status == domain.StatusWarning {
			s.WarningDays++
		}
		if pos.Status == domain.StatusLiquidated && s.LiquidationDay == nil {
			day := pos.Day
			s.LiquidationDay = &day
		}
	}
	s.MaxDrawdownPct = maxDrawdownPct(netValues)

	return s
}

// BuildRun assembles the persisted comparison record for one dual run.
func BuildRun(runID string, cfg domain.SimulationConfig, traditional, protected *domain.Trajectory) *domain.SimulationRun {
	scenario := cfg.Shape
	if cfg.Mode == domain.ModeReplay {
		scenario = yearRangeLabel(cfg.YearStart, cfg.YearEnd)
	}

	run := &domain.SimulationRun{
		RunID:            runID,
		Asset:            cfg.Asset,
		DebtAsset:        cfg.DebtAsset,
		Mode:             cfg.Mode,
		Scenario:         scenario,
		Days:             len(traditional.Days) - 1,
		DepositValue:     cfg.DepositValue,
		CollateralFactor: cfg.CollateralFactor,
		Traditional:      Summarize(traditional, cfg.DepositValue),
		Protected:        Summarize(protected, cfg.DepositValue),
	}
	run.AdvantagePct = run.Protected.TotalReturnPct - run.Traditional.TotalReturnPct
	return run
}

// BatchAggregate summarizes the Protected advantage over a sweep of
// runs (e.g. shapes x change targets).
type BatchAggregate struct {
	Runs int

	// Distribution of AdvantagePct across the batch.
	AdvantageMean   float64
	AdvantageMedian float64
	AdvantageP10    float64
	AdvantageP90    float64
	AdvantageMin    float64
	AdvantageMax    float64
	AdvantageStddev float64

	TraditionalLiquidations int
	ProtectedLiquidations   int
}

// Aggregate computes the cross-run distribution. Runs are sorted by
// RunID before order-independent statistics, keeping output
// deterministic regardless of sweep ordering.
func Aggregate(runs []*domain.SimulationRun) BatchAggregate {
	n := len(runs)
	if n == 0 {
		return BatchAggregate{}
	}

	sorted := make([]*domain.SimulationRun, n)
	copy(sorted, runs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RunID < sorted[j].RunID })

	advantages := make([]float64, n)
	agg := BatchAggregate{Runs: n}
	for i, r := range sorted {
		advantages[i] = r.AdvantagePct
		if r.Traditional.LiquidationDay != nil {
			agg.TraditionalLiquidations++
		}
		if r.Protected.LiquidationDay != nil {
			agg.ProtectedLiquidations++
		}
	}

	sortedAdv := make([]float64, n)
	copy(sortedAdv, advantages)
	sort.Float64s(sortedAdv)

	agg.AdvantageMean = mean(advantages)
	agg.AdvantageStddev = stddev(advantages, agg.AdvantageMean)
	agg.AdvantageMedian = percentile(sortedAdv, 0.50)
	agg.AdvantageP10 = percentile(sortedAdv, 0.10)
	agg.AdvantageP90 = percentile(sortedAdv, 0.90)
	agg.AdvantageMin = sortedAdv[0]
	agg.AdvantageMax = sortedAdv[n-1]

	return agg
}

// maxDrawdownPct is the worst peak-to-trough decline of the net value
// series, as a percentage of the peak. Values must be in day order.
func maxDrawdownPct(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	peak := values[0]
	maxDrawdown := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak * 100; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}
	return maxDrawdown
}

// mean calculates the arithmetic mean.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev calculates sample standard deviation (n-1 denominator).
func stddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// percentile uses linear interpolation; sorted must be pre-sorted ASC.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// yearRangeLabel formats a replay scenario label.
func yearRangeLabel(start, end int) string {
	if start == end {
		return strconv.Itoa(start)
	}
	return fmt.Sprintf("%d-%d", start, end)
}
