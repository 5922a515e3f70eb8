package verification

import (
	"context"
	"errors"

	"collateral-lab/internal/domain"
	"collateral-lab/internal/idhash"
	"collateral-lab/internal/metrics"
	"collateral-lab/internal/pricing"
	"collateral-lab/internal/simulation"
	"collateral-lab/internal/storage"
)

// ErrRunNotFound is returned when the run for a configuration has not
// been stored.
var ErrRunNotFound = errors.New("run not found")

// ReplayVerifier re-simulates configurations and compares the output
// against the stored run and event log.
type ReplayVerifier struct {
	runStore   storage.SimulationRunStore
	eventStore storage.PositionEventStore

	cache *pricing.SeriesCache
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(runStore storage.SimulationRunStore, eventStore storage.PositionEventStore) *ReplayVerifier {
	return &ReplayVerifier{
		runStore:   runStore,
		eventStore: eventStore,
		cache:      pricing.NewSeriesCache(),
	}
}

// VerifyRun re-simulates the given configuration and compares against
// the stored run. Replay configurations are resolved from the built-in
// anchor tables, so runs simulated from externally recorded series
// will report divergences rather than silently pass.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, cfg domain.SimulationConfig, targetDay int) (*VerificationResult, error) {
	cfg.Normalize()
	runID := idhash.ComputeRunID(cfg, targetDay)

	stored, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	engine, err := simulation.NewFromConfig(cfg, v.cache)
	if err != nil {
		return nil, err
	}
	traditional, protected, err := engine.Compare(targetDay)
	if err != nil {
		return nil, err
	}
	replayed := metrics.BuildRun(runID, cfg, traditional, protected)

	divergences := CompareRuns(stored, replayed)
	divergences = append(divergences, CheckTrajectory(traditional)...)
	divergences = append(divergences, CheckTrajectory(protected)...)

	// The stored event log must hold exactly the events both loops
	// emitted, in any persisted order.
	events, err := v.eventStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if want := len(traditional.Events) + len(protected.Events); len(events) != want {
		divergences = append(divergences, FieldDivergence{
			Field:    "EventCount",
			Expected: want,
			Actual:   len(events),
		})
	}

	return &VerificationResult{
		RunID:       runID,
		Match:       len(divergences) == 0,
		Divergences: divergences,
	}, nil
}
