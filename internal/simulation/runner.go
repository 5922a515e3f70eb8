package simulation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"collateral-lab/internal/domain"
	"collateral-lab/internal/idhash"
	"collateral-lab/internal/metrics"
	"collateral-lab/internal/pricing"
	"collateral-lab/internal/storage"
)

// Runner executes dual-strategy comparisons and persists the results.
// Flow: resolve prices → simulate both strategies → summarize → store.
type Runner struct {
	runStore    storage.SimulationRunStore
	eventStore  storage.PositionEventStore
	seriesStore storage.PriceSeriesStore

	cache *pricing.SeriesCache

	verbose bool
}

// RunnerOptions for creating Runner.
type RunnerOptions struct {
	// Required stores
	RunStore   storage.SimulationRunStore
	EventStore storage.PositionEventStore

	// Optional. When set, replay series are looked up here before the
	// built-in anchor tables.
	SeriesStore storage.PriceSeriesStore

	Verbose bool
}

// NewRunner creates a new Runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{
		runStore:    opts.RunStore,
		eventStore:  opts.EventStore,
		seriesStore: opts.SeriesStore,
		cache:       pricing.NewSeriesCache(),
		verbose:     opts.Verbose,
	}
}

// Execute runs both strategies over the configured horizon and persists
// the summary row plus all position events. Re-running the same
// configuration is a no-op: the deterministic run id already exists and
// the stored record is returned unchanged.
func (r *Runner) Execute(ctx context.Context, cfg domain.SimulationConfig, targetDay int) (*domain.SimulationRun, error) {
	cfg.Normalize()
	runID := idhash.ComputeRunID(cfg, targetDay)

	if existing, err := r.runStore.GetByID(ctx, runID); err == nil {
		r.log("run %s already stored, skipping simulation", runID[:12])
		return existing, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("check existing run: %w", err)
	}

	provider, err := r.provider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve price provider: %w", err)
	}

	engine := New(cfg, provider)
	traditional, protected, err := engine.Compare(targetDay)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}

	run := metrics.BuildRun(runID, cfg, traditional, protected)
	run.CreatedAt = time.Now().UTC()

	if err := r.persist(ctx, run, traditional, protected); err != nil {
		return nil, err
	}

	r.log("run %s stored: advantage %.2f%%", runID[:12], run.AdvantagePct)
	return run, nil
}

// provider resolves the price source for a config. Replay series stored
// in the price series store win over the built-in anchor tables, so
// recorded data can extend or override what ships with the binary.
func (r *Runner) provider(ctx context.Context, cfg domain.SimulationConfig) (pricing.Provider, error) {
	if cfg.Mode != domain.ModeReplay || r.seriesStore == nil {
		return pricing.FromConfig(cfg, r.cache)
	}

	seriesID := fmt.Sprintf("%s:%d-%d", cfg.Asset, cfg.YearStart, cfg.YearEnd)
	points, err := r.seriesStore.GetBySeriesID(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("load series %s: %w", seriesID, err)
	}
	if len(points) == 0 {
		r.log("series %s not stored, using built-in anchors", seriesID)
		return pricing.FromConfig(cfg, r.cache)
	}

	series := make([]float64, len(points))
	for i, p := range points {
		series[i] = p.Price
	}
	return pricing.NewReplay(series, cfg.BasePrice), nil
}

// persist writes the run and its events. A concurrent writer winning
// the race on the run row is treated as success.
func (r *Runner) persist(ctx context.Context, run *domain.SimulationRun, trajectories ...*domain.Trajectory) error {
	if err := r.runStore.Insert(ctx, run); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			r.log("run %s inserted concurrently, skipping events", run.RunID[:12])
			return nil
		}
		return fmt.Errorf("insert run: %w", err)
	}

	var events []*domain.PositionEvent
	for _, traj := range trajectories {
		for i := range traj.Events {
			events = append(events, &traj.Events[i])
		}
	}
	if len(events) == 0 {
		return nil
	}

	if err := r.eventStore.InsertBulk(ctx, run.RunID, events); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil
		}
		return fmt.Errorf("insert events: %w", err)
	}
	return nil
}

// SeedSeries expands a built-in replay series and stores it, making the
// recorded data visible to later runs and external tooling. Already
// seeded series are left untouched.
func (r *Runner) SeedSeries(ctx context.Context, asset string, yearStart, yearEnd int) (int, error) {
	if r.seriesStore == nil {
		return 0, errors.New("no price series store configured")
	}

	series, err := r.cache.DailySeries(asset, yearStart, yearEnd)
	if err != nil {
		return 0, fmt.Errorf("expand series: %w", err)
	}

	seriesID := fmt.Sprintf("%s:%d-%d", asset, yearStart, yearEnd)
	points := make([]*domain.PriceSeriesPoint, len(series))
	for day, price := range series {
		points[day] = &domain.PriceSeriesPoint{
			SeriesID: seriesID,
			Asset:    asset,
			Day:      day,
			Price:    price,
		}
	}

	if err := r.seriesStore.InsertBulk(ctx, points); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			r.log("series %s already seeded", seriesID)
			return 0, nil
		}
		return 0, fmt.Errorf("insert series: %w", err)
	}

	r.log("seeded series %s: %d days", seriesID, len(points))
	return len(points), nil
}

func (r *Runner) log(format string, args ...interface{}) {
	if r.verbose {
		log.Printf("[runner] "+format, args...)
	}
}
