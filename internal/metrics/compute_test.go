package metrics

import (
	"math"
	"testing"

	"collateral-lab/internal/domain"
)

// tradTrajectory builds a Traditional trajectory from explicit
// (collateralValue, debt, status) triples.
func tradTrajectory(days ...domain.Position) *domain.Trajectory {
	for i := range days {
		days[i].Strategy = domain.StrategyTraditional
		days[i].Day = i
	}
	return &domain.Trajectory{
		Strategy: domain.StrategyTraditional,
		Days:     days,
	}
}

func TestSummarize_ReturnAndWarningDays(t *testing.T) {
	traj := tradTrajectory(
		domain.Position{CollateralValue: 1000, DebtAmount: 700, BorrowedFundsBalance: 700, Status: domain.StatusHealthy},
		domain.Position{CollateralValue: 900, DebtAmount: 700, BorrowedFundsBalance: 700, Status: domain.StatusWarning},
		domain.Position{CollateralValue: 1100, DebtAmount: 700, BorrowedFundsBalance: 700, Status: domain.StatusHealthy},
	)

	s := Summarize(traj, 1000)

	if s.Strategy != domain.StrategyTraditional {
		t.Errorf("expected traditional summary, got %s", s.Strategy)
	}
	if math.Abs(s.FinalNetValue-1100) > 1e-9 {
		t.Errorf("expected final net value 1100, got %v", s.FinalNetValue)
	}
	if math.Abs(s.TotalReturnPct-10) > 1e-9 {
		t.Errorf("expected 10%% return, got %v", s.TotalReturnPct)
	}
	if s.WarningDays != 1 {
		t.Errorf("expected 1 warning day, got %d", s.WarningDays)
	}
	if s.LiquidationDay != nil {
		t.Errorf("expected no liquidation, got day %d", *s.LiquidationDay)
	}
}

func TestSummarize_FirstLiquidationDay(t *testing.T) {
	traj := tradTrajectory(
		domain.Position{CollateralValue: 1000, DebtAmount: 700, Status: domain.StatusHealthy},
		domain.Position{Status: domain.StatusLiquidated},
		domain.Position{Status: domain.StatusLiquidated},
	)

	s := Summarize(traj, 1000)

	if s.LiquidationDay == nil {
		t.Fatal("expected a liquidation day")
	}
	if *s.LiquidationDay != 1 {
		t.Errorf("expected first liquidation on day 1, got %d", *s.LiquidationDay)
	}
}

func TestSummarize_MaxDrawdown(t *testing.T) {
	// Net values: 1000, 1200, 600, 900. Worst decline is 1200 -> 600.
	traj := tradTrajectory(
		domain.Position{CollateralValue: 1000, Status: domain.StatusHealthy},
		domain.Position{CollateralValue: 1200, Status: domain.StatusHealthy},
		domain.Position{CollateralValue: 600, Status: domain.StatusWarning},
		domain.Position{CollateralValue: 900, Status: domain.StatusHealthy},
	)

	s := Summarize(traj, 1000)

	if math.Abs(s.MaxDrawdownPct-50) > 1e-9 {
		t.Errorf("expected 50%% max drawdown, got %v", s.MaxDrawdownPct)
	}
}

func TestBuildRun_ScenarioLabels(t *testing.T) {
	traj := tradTrajectory(
		domain.Position{CollateralValue: 1000, Status: domain.StatusHealthy},
		domain.Position{CollateralValue: 1050, Status: domain.StatusHealthy},
	)

	synthetic := domain.SimulationConfig{
		Asset: "ETH", DebtAsset: "USDC",
		Mode: domain.ModeSynthetic, Shape: "crash",
		DepositValue: 1000, CollateralFactor: 0.8,
	}
	run := BuildRun("id-1", synthetic, traj, traj)
	if run.Scenario != "crash" {
		t.Errorf("expected shape as scenario, got %s", run.Scenario)
	}
	if run.Days != 1 {
		t.Errorf("expected 1 simulated day, got %d", run.Days)
	}

	replay := synthetic
	replay.Mode = domain.ModeReplay
	replay.YearStart, replay.YearEnd = 2020, 2022
	run = BuildRun("id-2", replay, traj, traj)
	if run.Scenario != "2020-2022" {
		t.Errorf("expected year range as scenario, got %s", run.Scenario)
	}
}

func TestBuildRun_AdvantageIsReturnDelta(t *testing.T) {
	trad := tradTrajectory(
		domain.Position{CollateralValue: 1000, Status: domain.StatusHealthy},
		domain.Position{CollateralValue: 800, Status: domain.StatusWarning},
	)
	prot := tradTrajectory(
		domain.Position{CollateralValue: 1000, Status: domain.StatusHealthy},
		domain.Position{CollateralValue: 950, Status: domain.StatusHealthy},
	)
	prot.Strategy = domain.StrategyProtected
	for i := range prot.Days {
		prot.Days[i].Strategy = domain.StrategyProtected
	}

	cfg := domain.SimulationConfig{
		Asset: "ETH", Mode: domain.ModeSynthetic, Shape: "linear",
		DepositValue: 1000, CollateralFactor: 0.8,
	}
	run := BuildRun("id-3", cfg, trad, prot)

	// -5% Protected vs -20% Traditional.
	if math.Abs(run.AdvantagePct-15) > 1e-9 {
		t.Errorf("expected 15%% advantage, got %v", run.AdvantagePct)
	}
}

func TestAggregate_Distribution(t *testing.T) {
	day := func(liq bool) domain.StrategySummary {
		s := domain.StrategySummary{}
		if liq {
			d := 10
			s.LiquidationDay = &d
		}
		return s
	}

	runs := []*domain.SimulationRun{
		{RunID: "c", AdvantagePct: 30, Traditional: day(true), Protected: day(false)},
		{RunID: "a", AdvantagePct: 10, Traditional: day(false), Protected: day(false)},
		{RunID: "b", AdvantagePct: 20, Traditional: day(true), Protected: day(true)},
	}

	agg := Aggregate(runs)

	if agg.Runs != 3 {
		t.Errorf("expected 3 runs, got %d", agg.Runs)
	}
	if math.Abs(agg.AdvantageMean-20) > 1e-9 {
		t.Errorf("expected mean 20, got %v", agg.AdvantageMean)
	}
	if math.Abs(agg.AdvantageMedian-20) > 1e-9 {
		t.Errorf("expected median 20, got %v", agg.AdvantageMedian)
	}
	if agg.AdvantageMin != 10 || agg.AdvantageMax != 30 {
		t.Errorf("expected bounds [10, 30], got [%v, %v]", agg.AdvantageMin, agg.AdvantageMax)
	}
	if math.Abs(agg.AdvantageStddev-10) > 1e-9 {
		t.Errorf("expected stddev 10, got %v", agg.AdvantageStddev)
	}
	if agg.TraditionalLiquidations != 2 || agg.ProtectedLiquidations != 1 {
		t.Errorf("expected 2/1 liquidations, got %d/%d",
			agg.TraditionalLiquidations, agg.ProtectedLiquidations)
	}
}

func TestAggregate_OrderIndependent(t *testing.T) {
	runs := []*domain.SimulationRun{
		{RunID: "x", AdvantagePct: 5},
		{RunID: "y", AdvantagePct: -3},
		{RunID: "z", AdvantagePct: 12},
	}
	reversed := []*domain.SimulationRun{runs[2], runs[1], runs[0]}

	if Aggregate(runs) != Aggregate(reversed) {
		t.Error("aggregate must not depend on input order")
	}
}

func TestAggregate_Empty(t *testing.T) {
	agg := Aggregate(nil)
	if agg.Runs != 0 || agg.AdvantageMean != 0 {
		t.Errorf("expected zero aggregate, got %+v", agg)
	}
}
