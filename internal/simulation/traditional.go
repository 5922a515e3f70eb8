package simulation

import "collateral-lab/internal/domain"

// runTraditional advances the passive baseline position day by day.
// No rebalancing action exists: debt compounds, yields accrue on the
// side, and the first day health falls to the liquidation threshold
// the position is wiped. Supply yield on collateral and yield on the
// borrowed-funds balance accrue and compound independently but are
// never applied to the debt.
func (e *Engine) runTraditional(prices []float64, targetDay int) *domain.Trajectory {
	traj := &domain.Trajectory{
		Strategy: domain.StrategyTraditional,
		Config:   e.cfg,
		Days:     make([]domain.Position, 0, targetDay+1),
	}

	pos := e.InitializePosition(domain.StrategyTraditional)
	traj.Days = append(traj.Days, pos)

	collateralAmount := pos.CollateralAmount
	debt := pos.DebtAmount
	borrowedFunds := pos.BorrowedFundsBalance
	supplyYield := 0.0
	liquidated := false

	for d := 1; d <= targetDay; d++ {
		price := prices[d]

		if liquidated {
			// Absorbing state: only the day and price advance.
			frozen := traj.Days[d-1]
			frozen.Day = d
			frozen.Price = price
			traj.Days = append(traj.Days, frozen)
			continue
		}

		collateralValue := collateralAmount * price

		// Daily compounding, each stream independent.
		debt *= 1 + e.dailyBorrowRate()
		supplyYield = supplyYield*(1+e.dailySupplyRate()) + collateralValue*e.dailySupplyRate()
		borrowedFunds *= 1 + e.dailyVaultRate()

		health := domain.HealthRatioOf(collateralValue, e.cfg.CollateralFactor, debt)
		th := e.thresholdsForDay(prices, d)

		next := domain.Position{
			Strategy:             domain.StrategyTraditional,
			Day:                  d,
			Price:                price,
			CollateralAmount:     collateralAmount,
			CollateralValue:      collateralValue,
			DebtAmount:           debt,
			HealthRatio:          health,
			Status:               domain.StatusFor(health, th.TargetHealth),
			BorrowedFundsBalance: borrowedFunds,
			SupplyYieldAccrued:   supplyYield,
		}

		if health <= domain.LiquidationThreshold {
			traj.Events = append(traj.Events, domain.PositionEvent{
				Strategy:     domain.StrategyTraditional,
				Type:         domain.EventLiquidation,
				Day:          d,
				Price:        price,
				Amount:       collateralValue,
				HealthBefore: health,
				HealthAfter:  0,
			})
			next.CollateralAmount = 0
			next.CollateralValue = 0
			next.DebtAmount = 0
			next.HealthRatio = 0
			next.Status = domain.StatusLiquidated
			collateralAmount, debt = 0, 0
			liquidated = true
		}

		traj.Days = append(traj.Days, next)
	}

	return traj
}
