// Package simulation contains the dual-position solvency engine: the
// day-by-day state evolution of a passive (Traditional) and an
// auto-managed (Protected) collateralized-lending position under a
// shared price path.
//
// Every entry point is a deterministic mapping from (day-0 parameters,
// price path, configuration) to a trajectory. Simulating to an
// arbitrary target day always replays days 1..target from scratch;
// no mutable carry-state survives between calls.
package simulation

import (
	"errors"
	"fmt"

	"collateral-lab/internal/domain"
	"collateral-lab/internal/pricing"
	"collateral-lab/internal/thresholds"
	"collateral-lab/internal/volatility"
)

// Control policy constants.
const (
	// IntradayCheckpoints is the number of sub-day price samples the
	// Protected simulator evaluates. A single large intra-day move can
	// cross from healthy straight past the liquidation threshold if
	// health is only checked once per day.
	IntradayCheckpoints = 4

	// UptrendDaysRequired is the sustained-uptrend gate for
	// leverage-up: this many consecutive up days must precede it.
	UptrendDaysRequired = 7

	// UptrendEpsilon is the minimum daily gain that counts as an up
	// day.
	UptrendEpsilon = 0.001

	// LeverageBorrowFraction is the share of the health gap borrowed
	// on a leverage-up, keeping health above the recovery target.
	LeverageBorrowFraction = 0.75

	daysPerYear = 365
)

// ErrUnknownStrategy is returned for strategies the engine does not
// simulate.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Engine binds one configuration to one price path and exposes the
// simulation entry points. It is safe for concurrent use: all methods
// are read-only with respect to the engine itself.
type Engine struct {
	cfg    domain.SimulationConfig
	prices pricing.Provider
}

// New creates an engine over an explicit price provider. The config is
// normalized, so threshold ordering holds before any simulation runs.
func New(cfg domain.SimulationConfig, prices pricing.Provider) *Engine {
	cfg.Normalize()
	return &Engine{cfg: cfg, prices: prices}
}

// NewFromConfig creates an engine whose price provider is built from
// the config's data mode, using the supplied series cache for replay
// mode.
func NewFromConfig(cfg domain.SimulationConfig, cache *pricing.SeriesCache) (*Engine, error) {
	cfg.Normalize()
	provider, err := pricing.FromConfig(cfg, cache)
	if err != nil {
		return nil, fmt.Errorf("build price provider: %w", err)
	}
	return &Engine{cfg: cfg, prices: provider}, nil
}

// Config returns the normalized configuration the engine runs with.
func (e *Engine) Config() domain.SimulationConfig {
	return e.cfg
}

// PriceAt returns the path price for the given day.
func (e *Engine) PriceAt(day int) float64 {
	return e.prices.PriceAt(day)
}

// VolatilityAt returns the trailing annualized volatility (percent)
// observed at the given day.
func (e *Engine) VolatilityAt(day int) float64 {
	return volatility.FromProvider(e.prices.PriceAt, day, volatility.DefaultWindowDays)
}

// ThresholdsAt resolves the control thresholds in effect on the given
// day: user overrides, then the dynamic volatility tier, then static
// per-asset defaults.
func (e *Engine) ThresholdsAt(day int) domain.ControlThresholds {
	return thresholds.Resolve(e.VolatilityAt(day), e.cfg.Asset, e.cfg.ThresholdOverrides())
}

// InitializePosition creates the day-0 position for a strategy: the
// deposit is converted to collateral at the day-0 price and the
// initial borrow is sized so that the day-0 health ratio equals the
// target exactly. The borrowed value is routed to the strategy's side
// balance (vault for Protected, borrowed-funds balance for
// Traditional), so day-0 net value equals the deposit.
func (e *Engine) InitializePosition(strategy domain.Strategy) domain.Position {
	price := e.prices.PriceAt(0)
	th := e.ThresholdsAt(0)

	collateralAmount := e.cfg.DepositValue / price
	collateralValue := collateralAmount * price
	debt := collateralValue * e.cfg.CollateralFactor / th.TargetHealth

	pos := domain.Position{
		Strategy:         strategy,
		Day:              0,
		Price:            price,
		CollateralAmount: collateralAmount,
		CollateralValue:  collateralValue,
		DebtAmount:       debt,
		// Equal to the target by construction; set directly so the
		// day-0 identity holds bit-exactly.
		HealthRatio: th.TargetHealth,
		Status:      domain.StatusFor(th.TargetHealth, th.TargetHealth),
	}
	if strategy == domain.StrategyProtected {
		pos.VaultBalance = debt
	} else {
		pos.BorrowedFundsBalance = debt
	}
	return pos
}

// SimulateToDay recomputes the full trajectory up to targetDay and
// returns the resulting position state. Calling it twice with the
// same inputs yields bit-identical output.
func (e *Engine) SimulateToDay(strategy domain.Strategy, targetDay int) (domain.Position, error) {
	traj, err := e.Run(strategy, targetDay)
	if err != nil {
		return domain.Position{}, err
	}
	return traj.Final(), nil
}

// Run produces the full trajectory and the structured event log for
// one strategy in a single pass: day d+1 depends only on day d state
// and the day d+1 price, so truncating the horizon always yields a
// valid partial trajectory.
func (e *Engine) Run(strategy domain.Strategy, targetDay int) (*domain.Trajectory, error) {
	if targetDay < 0 {
		targetDay = 0
	}

	// Thread the evolving price window explicitly through the loop:
	// the volatility statistic for day d reads prices[0..d] only.
	prices := make([]float64, targetDay+1)
	for d := 0; d <= targetDay; d++ {
		prices[d] = e.prices.PriceAt(d)
	}

	switch strategy {
	case domain.StrategyTraditional:
		return e.runTraditional(prices, targetDay), nil
	case domain.StrategyProtected:
		return e.runProtected(prices, targetDay), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, strategy)
	}
}

// Compare runs both strategies over the same price path.
func (e *Engine) Compare(targetDay int) (traditional, protected *domain.Trajectory, err error) {
	traditional, err = e.Run(domain.StrategyTraditional, targetDay)
	if err != nil {
		return nil, nil, err
	}
	protected, err = e.Run(domain.StrategyProtected, targetDay)
	if err != nil {
		return nil, nil, err
	}
	return traditional, protected, nil
}

// thresholdsForDay resolves thresholds from an in-loop price window.
func (e *Engine) thresholdsForDay(prices []float64, day int) domain.ControlThresholds {
	vol := volatility.Annualized(prices, day, volatility.DefaultWindowDays)
	return thresholds.Resolve(vol, e.cfg.Asset, e.cfg.ThresholdOverrides())
}

// Daily rate helpers. Interest and yields compound daily.

func (e *Engine) dailyBorrowRate() float64 { return e.cfg.BorrowAPR / daysPerYear }
func (e *Engine) dailySupplyRate() float64 { return e.cfg.SupplyAPY / daysPerYear }
func (e *Engine) dailyVaultRate() float64  { return e.cfg.VaultAPY / daysPerYear }
