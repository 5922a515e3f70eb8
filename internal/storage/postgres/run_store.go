package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"collateral-lab/internal/domain"
	"collateral-lab/internal/storage"
)

// SimulationRunStore implements storage.SimulationRunStore using PostgreSQL.
type SimulationRunStore struct {
	pool *Pool
}

// NewSimulationRunStore creates a new SimulationRunStore.
func NewSimulationRunStore(pool *Pool) *SimulationRunStore {
	return &SimulationRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SimulationRunStore = (*SimulationRunStore)(nil)

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *SimulationRunStore) Insert(ctx context.Context, run *domain.SimulationRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO simulation_runs (
			run_id, asset, debt_asset, mode, scenario, days,
			deposit_value, collateral_factor,
			trad_final_net_value, trad_return_pct, trad_max_drawdown_pct,
			trad_warning_days, trad_liquidation_day, trad_rebalances, trad_leverage_ups,
			prot_final_net_value, prot_return_pct, prot_max_drawdown_pct,
			prot_warning_days, prot_liquidation_day, prot_rebalances, prot_leverage_ups,
			advantage_pct, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8,
			$9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22,
			$23, $24
		)
	`

	trad, prot := run.Traditional, run.Protected
	_, err := s.pool.Exec(ctx, query,
		run.RunID, run.Asset, run.DebtAsset, run.Mode, run.Scenario, run.Days,
		run.DepositValue, run.CollateralFactor,
		trad.FinalNetValue, trad.TotalReturnPct, trad.MaxDrawdownPct,
		trad.WarningDays, trad.LiquidationDay, trad.RebalanceCount, trad.LeverageUpCount,
		prot.FinalNetValue, prot.TotalReturnPct, prot.MaxDrawdownPct,
		prot.WarningDays, prot.LiquidationDay, prot.RebalanceCount, prot.LeverageUpCount,
		run.AdvantagePct, run.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert simulation run: %w", err)
	}

	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *SimulationRunStore) GetByID(ctx context.Context, runID string) (*domain.SimulationRun, error) {
	query := `
		SELECT
			run_id, asset, debt_asset, mode, scenario, days,
			deposit_value, collateral_factor,
			trad_final_net_value, trad_return_pct, trad_max_drawdown_pct,
			trad_warning_days, trad_liquidation_day, trad_rebalances, trad_leverage_ups,
			prot_final_net_value, prot_return_pct, prot_max_drawdown_pct,
			prot_warning_days, prot_liquidation_day, prot_rebalances, prot_leverage_ups,
			advantage_pct, created_at
		FROM simulation_runs
		WHERE run_id = $1
	`

	row := s.pool.QueryRow(ctx, query, runID)
	run, err := scanSimulationRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get simulation run by id: %w", err)
	}
	return run, nil
}

// GetByAsset retrieves all runs for an asset.
func (s *SimulationRunStore) GetByAsset(ctx context.Context, asset string) ([]*domain.SimulationRun, error) {
	query := `
		SELECT
			run_id, asset, debt_asset, mode, scenario, days,
			deposit_value, collateral_factor,
			trad_final_net_value, trad_return_pct, trad_max_drawdown_pct,
			trad_warning_days, trad_liquidation_day, trad_rebalances, trad_leverage_ups,
			prot_final_net_value, prot_return_pct, prot_max_drawdown_pct,
			prot_warning_days, prot_liquidation_day, prot_rebalances, prot_leverage_ups,
			advantage_pct, created_at
		FROM simulation_runs
		WHERE asset = $1
		ORDER BY created_at ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, asset)
	if err != nil {
		return nil, fmt.Errorf("get simulation runs by asset: %w", err)
	}
	defer rows.Close()

	return scanSimulationRuns(rows)
}

// List retrieves all runs.
func (s *SimulationRunStore) List(ctx context.Context) ([]*domain.SimulationRun, error) {
	query := `
		SELECT
			run_id, asset, debt_asset, mode, scenario, days,
			deposit_value, collateral_factor,
			trad_final_net_value, trad_return_pct, trad_max_drawdown_pct,
			trad_warning_days, trad_liquidation_day, trad_rebalances, trad_leverage_ups,
			prot_final_net_value, prot_return_pct, prot_max_drawdown_pct,
			prot_warning_days, prot_liquidation_day, prot_rebalances, prot_leverage_ups,
			advantage_pct, created_at
		FROM simulation_runs
		ORDER BY created_at ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list simulation runs: %w", err)
	}
	defer rows.Close()

	return scanSimulationRuns(rows)
}

// scanSimulationRun scans a single row into a SimulationRun.
func scanSimulationRun(row pgx.Row) (*domain.SimulationRun, error) {
	var run domain.SimulationRun
	trad := &run.Traditional
	prot := &run.Protected

	err := row.Scan(
		&run.RunID, &run.Asset, &run.DebtAsset, &run.Mode, &run.Scenario, &run.Days,
		&run.DepositValue, &run.CollateralFactor,
		&trad.FinalNetValue, &trad.TotalReturnPct, &trad.MaxDrawdownPct,
		&trad.WarningDays, &trad.LiquidationDay, &trad.RebalanceCount, &trad.LeverageUpCount,
		&prot.FinalNetValue, &prot.TotalReturnPct, &prot.MaxDrawdownPct,
		&prot.WarningDays, &prot.LiquidationDay, &prot.RebalanceCount, &prot.LeverageUpCount,
		&run.AdvantagePct, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	trad.Strategy = domain.StrategyTraditional
	prot.Strategy = domain.StrategyProtected
	return &run, nil
}

// scanSimulationRuns scans multiple rows into a slice of SimulationRun.
func scanSimulationRuns(rows pgx.Rows) ([]*domain.SimulationRun, error) {
	var runs []*domain.SimulationRun

	for rows.Next() {
		run, err := scanSimulationRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan simulation run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulation run rows: %w", err)
	}

	return runs, nil
}
