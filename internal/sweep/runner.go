// Package sweep executes grids of synthetic scenarios through the
// simulation runner, optionally verifying each stored run against a
// fresh re-simulation.
package sweep

import (
	"context"
	"fmt"

	"collateral-lab/internal/domain"
	"collateral-lab/internal/metrics"
	"collateral-lab/internal/simulation"
	"collateral-lab/internal/verification"
)

// Grid defines the synthetic scenario space: the cross product of
// assets, shapes and target changes at a fixed horizon.
type Grid struct {
	Assets  []string
	Shapes  []string
	Changes []float64 // target change over the horizon, percent
	Days    int
}

// DefaultGrid covers both directions of every shape at the default
// horizon.
func DefaultGrid() Grid {
	return Grid{
		Assets:  []string{"ETH", "BTC"},
		Shapes:  []string{"linear", "crash", "vshape", "bull"},
		Changes: []float64{-60, -30, 0, 50, 120},
		Days:    domain.DefaultTotalDays,
	}
}

// Size returns the number of cells in the grid.
func (g Grid) Size() int {
	return len(g.Assets) * len(g.Shapes) * len(g.Changes)
}

// Configs expands the grid into simulation configurations, ordered
// asset-major so runs for one asset land adjacently in storage.
func (g Grid) Configs() []domain.SimulationConfig {
	configs := make([]domain.SimulationConfig, 0, g.Size())
	for _, asset := range g.Assets {
		for _, shape := range g.Shapes {
			for _, change := range g.Changes {
				configs = append(configs, domain.SimulationConfig{
					Asset:           asset,
					Mode:            domain.ModeSynthetic,
					Shape:           shape,
					TargetChangePct: change,
					TotalDays:       g.Days,
				})
			}
		}
	}
	return configs
}

// Result is the output of one executed grid cell.
type Result struct {
	Config domain.SimulationConfig
	Run    *domain.SimulationRun

	// Nil unless the runner was created with a verifier.
	Verification *verification.VerificationResult
}

// Results is the full sweep outcome.
type Results struct {
	Cells     []Result
	Aggregate metrics.BatchAggregate

	// Zero-valued when verification is disabled.
	Verification verification.VerificationReport
}

// Runner executes scenario grids.
type Runner struct {
	runner   *simulation.Runner
	verifier *verification.ReplayVerifier
}

// Options for creating a sweep Runner.
type Options struct {
	// Required.
	Runner *simulation.Runner

	// Optional. When set, every executed cell is re-simulated and
	// compared against the stored run.
	Verifier *verification.ReplayVerifier
}

// NewRunner creates a new sweep runner.
func NewRunner(opts Options) *Runner {
	return &Runner{
		runner:   opts.Runner,
		verifier: opts.Verifier,
	}
}

// Run executes every cell of the grid and aggregates the advantage
// distribution over the produced runs. Execution stops at the first
// cell error or context cancellation.
func (r *Runner) Run(ctx context.Context, grid Grid) (*Results, error) {
	results := &Results{Cells: make([]Result, 0, grid.Size())}
	runs := make([]*domain.SimulationRun, 0, grid.Size())

	for _, cfg := range grid.Configs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		run, err := r.runner.Execute(ctx, cfg, cfg.TotalDays)
		if err != nil {
			return nil, fmt.Errorf("scenario %s/%s/%+.0f%%: %w", cfg.Asset, cfg.Shape, cfg.TargetChangePct, err)
		}

		result := Result{Config: cfg, Run: run}
		if r.verifier != nil {
			vr, err := r.verifier.VerifyRun(ctx, cfg, cfg.TotalDays)
			if err != nil {
				return nil, fmt.Errorf("verify %s: %w", run.RunID, err)
			}
			result.Verification = vr
			results.Verification.Add(*vr)
		}

		results.Cells = append(results.Cells, result)
		runs = append(runs, run)
	}

	results.Aggregate = metrics.Aggregate(runs)
	return results, nil
}
