package domain

// EventType classifies position events emitted by the simulators.
type EventType string

// Event type constants.
const (
	EventRebalanceDown EventType = "REBALANCE_DOWN"
	EventLeverageUp    EventType = "LEVERAGE_UP"
	EventLiquidation   EventType = "LIQUIDATION"
)

// Funding source codes for rebalance repayments.
const (
	FundingYieldReserve = "YIELD_RESERVE"
	FundingVault        = "VAULT"
	FundingCollateral   = "COLLATERAL"
)

// PositionEvent is one structured control action recorded during a
// simulation pass. Events are emitted by the same day loop that
// produces the trajectory, so the two can never fall out of sync.
type PositionEvent struct {
	RunID    string
	Strategy Strategy
	Type     EventType
	Day      int
	Price    float64 // price at which the event executed

	// Amount semantics depend on Type: debt repaid for
	// REBALANCE_DOWN, new debt borrowed for LEVERAGE_UP,
	// collateral value wiped for LIQUIDATION.
	Amount float64

	// Funding breakdown for rebalance-down events, in currency units.
	FromYieldReserve float64
	FromVault        float64
	FromCollateral   float64

	HealthBefore float64
	HealthAfter  float64
}

// Trajectory is the full day-by-day output of one simulation pass for
// one strategy, plus the event log produced by the same loop.
type Trajectory struct {
	Strategy Strategy
	Config   SimulationConfig
	Days     []Position // index == day, Days[0] is the initial state
	Events   []PositionEvent
}

// Final returns the last simulated day state. Panics if the trajectory
// is empty, which cannot happen for output of SimulateToDay.
func (t *Trajectory) Final() Position {
	return t.Days[len(t.Days)-1]
}

// At returns the state at the given day, clamped into range.
func (t *Trajectory) At(day int) Position {
	if day < 0 {
		day = 0
	}
	if day >= len(t.Days) {
		day = len(t.Days) - 1
	}
	return t.Days[day]
}

// EventsOn returns the events recorded for the given day.
func (t *Trajectory) EventsOn(day int) []PositionEvent {
	var out []PositionEvent
	for _, e := range t.Events {
		if e.Day == day {
			out = append(out, e)
		}
	}
	return out
}
