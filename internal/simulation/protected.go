package simulation

import (
	"math"

	"collateral-lab/internal/domain"
	"collateral-lab/internal/thresholds"
	"collateral-lab/internal/volatility"
)

// protectedState threads the Protected position's evolving quantities
// through the day loop. All of it is local to one Run call.
type protectedState struct {
	collateralAmount float64
	debt             float64
	yieldReserve     float64
	vaultBalance     float64

	supplyYieldAccrued float64
	rebalanceCount     int
	leverageUpCount    int
	uptrendDays        int
	liquidated         bool
}

// health computes the current health ratio at a price.
func (s *protectedState) health(price, collateralFactor float64) float64 {
	return domain.HealthRatioOf(s.collateralAmount*price, collateralFactor, s.debt)
}

// runProtected advances the actively managed position. Each day is
// evaluated at sub-day checkpoints so a fast crash can be met with a
// rebalance before it crosses the liquidation threshold, then full
// end-of-day mechanics run: yield accrual, interest, a final
// rebalance check, and the gated leverage-up.
func (e *Engine) runProtected(prices []float64, targetDay int) *domain.Trajectory {
	traj := &domain.Trajectory{
		Strategy: domain.StrategyProtected,
		Config:   e.cfg,
		Days:     make([]domain.Position, 0, targetDay+1),
	}

	init := e.InitializePosition(domain.StrategyProtected)
	traj.Days = append(traj.Days, init)

	st := &protectedState{
		collateralAmount: init.CollateralAmount,
		debt:             init.DebtAmount,
		vaultBalance:     init.VaultBalance,
	}

	for d := 1; d <= targetDay; d++ {
		price := prices[d]

		if st.liquidated {
			frozen := traj.Days[d-1]
			frozen.Day = d
			frozen.Price = price
			traj.Days = append(traj.Days, frozen)
			continue
		}

		th := e.thresholdsForDay(prices, d)
		vol := volatility.Annualized(prices, d, volatility.DefaultWindowDays)
		rebalancedToday := false

		// 1-2. Intra-day checkpoints between yesterday's close and
		// today's close, geometrically interpolated.
		prevPrice := prices[d-1]
		for i := 1; i <= IntradayCheckpoints && !st.liquidated; i++ {
			cpPrice := checkpointPrice(prevPrice, price, i)
			if ev, ok := e.rebalanceDown(st, cpPrice, th); ok {
				ev.Day = d
				traj.Events = append(traj.Events, ev)
				rebalancedToday = true
			}
			if st.health(cpPrice, e.cfg.CollateralFactor) <= domain.LiquidationThreshold {
				traj.Events = append(traj.Events, e.liquidate(st, d, cpPrice))
			}
		}

		if !st.liquidated {
			// 3. End-of-day accrual: supply yield into the reserve,
			// vault compounding, debt interest.
			collateralValue := st.collateralAmount * price
			st.yieldReserve += collateralValue * e.dailySupplyRate()
			st.supplyYieldAccrued += collateralValue * e.dailySupplyRate()
			st.vaultBalance *= 1 + e.dailyVaultRate()
			st.debt *= 1 + e.dailyBorrowRate()

			// Protection mode: below target, the yield reserve pays
			// down debt; above it, the reserve is retained so calm
			// periods drift the position toward leverage territory.
			if st.health(price, e.cfg.CollateralFactor) < th.TargetHealth && st.debt > 0 {
				repay := math.Min(st.yieldReserve, st.debt)
				st.yieldReserve -= repay
				st.debt -= repay
			}

			// 4. One more rebalance pass at the closing price covers
			// moves an intraday grid can miss.
			if ev, ok := e.rebalanceDown(st, price, th); ok {
				ev.Day = d
				traj.Events = append(traj.Events, ev)
				rebalancedToday = true
			}

			// Sustained-uptrend bookkeeping feeds the leverage gate.
			if price > prevPrice*(1+UptrendEpsilon) {
				st.uptrendDays++
			} else {
				st.uptrendDays = 0
			}

			// 5. Leverage-up behind two safety gates: one good day
			// must not add leverage into a dead-cat bounce.
			if ev, ok := e.leverageUp(st, price, th, vol); ok {
				ev.Day = d
				traj.Events = append(traj.Events, ev)
			}

			if st.health(price, e.cfg.CollateralFactor) <= domain.LiquidationThreshold {
				traj.Events = append(traj.Events, e.liquidate(st, d, price))
			}
		}

		if rebalancedToday {
			// Once per day with any repayment, not once per checkpoint.
			st.rebalanceCount++
		}

		traj.Days = append(traj.Days, e.snapshotProtected(st, d, price, th))
	}

	return traj
}

// checkpointPrice geometrically interpolates the i-th of
// IntradayCheckpoints sub-day samples between two daily closes. The
// final checkpoint lands exactly on the day's close.
func checkpointPrice(prev, close float64, i int) float64 {
	if prev <= 0 {
		return close
	}
	frac := float64(i) / float64(IntradayCheckpoints)
	return prev * math.Pow(close/prev, frac)
}

// rebalanceDown fires when health is below the minimum threshold:
// it computes the repayment that restores the target exactly
// (repay = debt - effectiveCollateral/target) and satisfies it in
// strict priority order: yield reserve, vault balance, collateral sale
// at the checkpoint price. It never repays more than the outstanding
// debt nor sells more collateral than held.
func (e *Engine) rebalanceDown(st *protectedState, price float64, th domain.ControlThresholds) (domain.PositionEvent, bool) {
	healthBefore := st.health(price, e.cfg.CollateralFactor)
	if healthBefore >= th.MinHealth || st.debt <= 0 || price <= 0 {
		return domain.PositionEvent{}, false
	}

	effectiveCollateral := st.collateralAmount * price * e.cfg.CollateralFactor
	repay := st.debt - effectiveCollateral/th.TargetHealth
	if repay <= 0 {
		return domain.PositionEvent{}, false
	}
	if repay > st.debt {
		repay = st.debt
	}

	remaining := repay

	fromYield := math.Min(st.yieldReserve, remaining)
	st.yieldReserve -= fromYield
	st.debt -= fromYield
	remaining -= fromYield

	fromVault := math.Min(st.vaultBalance, remaining)
	st.vaultBalance -= fromVault
	st.debt -= fromVault
	remaining -= fromVault

	fromCollateral := 0.0
	if remaining > 0 {
		sellValue := math.Min(remaining, st.collateralAmount*price)
		st.collateralAmount -= sellValue / price
		st.debt -= sellValue
		fromCollateral = sellValue
		remaining -= sellValue
	}

	repaid := repay - remaining
	if repaid <= 0 {
		return domain.PositionEvent{}, false
	}

	return domain.PositionEvent{
		Strategy:         domain.StrategyProtected,
		Type:             domain.EventRebalanceDown,
		Price:            price,
		Amount:           repaid,
		FromYieldReserve: fromYield,
		FromVault:        fromVault,
		FromCollateral:   fromCollateral,
		HealthBefore:     healthBefore,
		HealthAfter:      st.health(price, e.cfg.CollateralFactor),
	}, true
}

// leverageUp borrows a fraction of the gap back to the target when
// health has overshot the maximum threshold, and deploys the new debt
// to the vault rather than into more collateral. Three gates: a finite
// max threshold (volatility regime allows leverage), a sustained
// uptrend, and volatility below a fixed ceiling.
func (e *Engine) leverageUp(st *protectedState, price float64, th domain.ControlThresholds, vol float64) (domain.PositionEvent, bool) {
	healthBefore := st.health(price, e.cfg.CollateralFactor)
	if th.LeverageDisabled() || healthBefore <= th.MaxHealth {
		return domain.PositionEvent{}, false
	}
	if st.uptrendDays < UptrendDaysRequired {
		return domain.PositionEvent{}, false
	}
	if vol >= thresholds.LeverageVolCeilingPct {
		return domain.PositionEvent{}, false
	}

	effectiveCollateral := st.collateralAmount * price * e.cfg.CollateralFactor
	gap := effectiveCollateral/th.TargetHealth - st.debt
	if gap <= 0 {
		return domain.PositionEvent{}, false
	}

	borrow := gap * LeverageBorrowFraction
	st.debt += borrow
	st.vaultBalance += borrow
	st.leverageUpCount++
	// Reset so a single overshoot cannot chain immediate repeats.
	st.uptrendDays = 0

	return domain.PositionEvent{
		Strategy:     domain.StrategyProtected,
		Type:         domain.EventLeverageUp,
		Price:        price,
		Amount:       borrow,
		HealthBefore: healthBefore,
		HealthAfter:  st.health(price, e.cfg.CollateralFactor),
	}, true
}

// liquidate wipes the position: the absorbing terminal state. The
// Protected strategy reaches it only when yield reserve, vault and
// collateral together could not restore health.
func (e *Engine) liquidate(st *protectedState, day int, price float64) domain.PositionEvent {
	ev := domain.PositionEvent{
		Strategy:     domain.StrategyProtected,
		Type:         domain.EventLiquidation,
		Day:          day,
		Price:        price,
		Amount:       st.collateralAmount * price,
		HealthBefore: st.health(price, e.cfg.CollateralFactor),
		HealthAfter:  0,
	}
	st.collateralAmount = 0
	st.debt = 0
	st.liquidated = true
	return ev
}

// snapshotProtected materializes the day's closing Position.
func (e *Engine) snapshotProtected(st *protectedState, day int, price float64, th domain.ControlThresholds) domain.Position {
	collateralValue := st.collateralAmount * price
	health := st.health(price, e.cfg.CollateralFactor)

	status := domain.StatusFor(health, th.TargetHealth)
	if st.liquidated {
		status = domain.StatusLiquidated
		health = 0
	}

	return domain.Position{
		Strategy:           domain.StrategyProtected,
		Day:                day,
		Price:              price,
		CollateralAmount:   st.collateralAmount,
		CollateralValue:    collateralValue,
		DebtAmount:         st.debt,
		HealthRatio:        health,
		Status:             status,
		YieldReserve:       st.yieldReserve,
		VaultBalance:       st.vaultBalance,
		SupplyYieldAccrued: st.supplyYieldAccrued,
		RebalanceCount:     st.rebalanceCount,
		LeverageUpCount:    st.leverageUpCount,
	}
}
