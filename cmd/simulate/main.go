package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"collateral-lab/internal/domain"
	"collateral-lab/internal/simulation"
	"collateral-lab/internal/storage"
	chstore "collateral-lab/internal/storage/clickhouse"
	"collateral-lab/internal/storage/memory"
	pgstore "collateral-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	asset := flag.String("asset", "ETH", "Collateral asset: ETH, BTC, LINK, UNI")
	debtAsset := flag.String("debt-asset", "USDC", "Borrowed asset symbol")
	deposit := flag.Float64("deposit", domain.DefaultDepositValue, "Deposit value in debt-asset units")
	collateralFactor := flag.Float64("collateral-factor", domain.DefaultCollateralFactor, "Borrowable fraction of collateral value")

	// Threshold overrides (0 = resolve dynamically)
	targetHealth := flag.Float64("target-health", 0, "Target health ratio override")
	minHealth := flag.Float64("min-health", 0, "Minimum health ratio override")
	maxHealth := flag.Float64("max-health", 0, "Maximum health ratio override")

	// Rates
	borrowAPR := flag.Float64("borrow-apr", domain.DefaultBorrowAPR, "Annual borrow rate")
	supplyAPY := flag.Float64("supply-apy", domain.DefaultSupplyAPY, "Annual collateral supply yield")
	vaultAPY := flag.Float64("vault-apy", domain.DefaultVaultAPY, "Annual vault yield")

	// Price path
	mode := flag.String("mode", domain.ModeSynthetic, "Price mode: synthetic, replay")
	shape := flag.String("shape", "linear", "Synthetic shape: linear, crash, vshape, bull")
	changePct := flag.Float64("change-pct", 0, "Synthetic total price change over the horizon (percent)")
	tier := flag.String("noise-tier", "medium", "Synthetic noise tier: low, medium, high")
	basePrice := flag.Float64("base-price", 0, "Base price (synthetic) or replay rescale override")
	days := flag.Int("days", domain.DefaultTotalDays, "Horizon in days")
	yearStart := flag.Int("year-start", 2020, "Replay start year")
	yearEnd := flag.Int("year-end", 2020, "Replay end year")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")
	verbose := flag.Bool("verbose", false, "Verbose runner logging")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	// Normalize and validate mode
	*mode = strings.ToLower(*mode)
	if *mode != domain.ModeSynthetic && *mode != domain.ModeReplay {
		logger.Fatalf("Invalid mode: %s. Must be synthetic or replay", *mode)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Create stores
	var runStore storage.SimulationRunStore = memory.NewSimulationRunStore()
	var eventStore storage.PositionEventStore = memory.NewPositionEventStore()
	var seriesStore storage.PriceSeriesStore = memory.NewPriceSeriesStore()

	if !*useMemory {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required when not using --use-memory (runs and events)")
		}

		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()

		runStore = pgstore.NewSimulationRunStore(pool)
		eventStore = pgstore.NewPositionEventStore(pool)

		// ClickHouse is optional: without it replay mode falls back to
		// the built-in anchor tables.
		if *clickhouseDSN != "" {
			conn, err := chstore.NewConn(ctx, *clickhouseDSN)
			if err != nil {
				logger.Fatalf("connect to clickhouse: %v", err)
			}
			defer conn.Close()

			seriesStore = chstore.NewPriceSeriesStore(conn)
		} else {
			seriesStore = nil
		}
	}

	cfg := domain.SimulationConfig{
		Asset:            strings.ToUpper(*asset),
		DebtAsset:        strings.ToUpper(*debtAsset),
		DepositValue:     *deposit,
		CollateralFactor: *collateralFactor,
		BorrowAPR:        *borrowAPR,
		SupplyAPY:        *supplyAPY,
		VaultAPY:         *vaultAPY,
		Mode:             *mode,
		BasePrice:        *basePrice,
		TotalDays:        *days,
		YearStart:        *yearStart,
		YearEnd:          *yearEnd,
		TargetChangePct:  *changePct,
		VolatilityTier:   strings.ToLower(*tier),
		Shape:            strings.ToLower(*shape),
	}
	if *targetHealth > 0 {
		cfg.TargetHealth = targetHealth
	}
	if *minHealth > 0 {
		cfg.MinHealth = minHealth
	}
	if *maxHealth > 0 {
		cfg.MaxHealth = maxHealth
	}

	runner := simulation.NewRunner(simulation.RunnerOptions{
		RunStore:    runStore,
		EventStore:  eventStore,
		SeriesStore: seriesStore,
		Verbose:     *verbose,
	})

	logger.Printf("Running comparison: asset=%s mode=%s days=%d", cfg.Asset, cfg.Mode, *days)

	run, err := runner.Execute(ctx, cfg, *days)
	if err != nil {
		logger.Fatalf("simulation failed: %v", err)
	}

	// Output result
	if *outputJSON {
		output, _ := json.MarshalIndent(run, "", "  ")
		fmt.Println(string(output))
	} else {
		printRun(run)
	}
}

// printRun outputs a human-readable comparison.
func printRun(r *domain.SimulationRun) {
	fmt.Println()
	fmt.Println("=== Solvency Comparison ===")
	fmt.Printf("Run ID:             %s\n", r.RunID)
	fmt.Printf("Asset:              %s (debt: %s)\n", r.Asset, r.DebtAsset)
	fmt.Printf("Scenario:           %s (%s, %d days)\n", r.Scenario, r.Mode, r.Days)
	fmt.Printf("Deposit:            %.2f\n", r.DepositValue)
	fmt.Printf("Collateral Factor:  %.2f\n", r.CollateralFactor)
	fmt.Println()

	printSummary("Traditional", r.Traditional)
	printSummary("Protected", r.Protected)

	fmt.Printf("Protected advantage: %+.2f%%\n", r.AdvantagePct)
}

func printSummary(name string, s domain.StrategySummary) {
	fmt.Printf("%s:\n", name)
	fmt.Printf("  Final Net Value:  %.2f\n", s.FinalNetValue)
	fmt.Printf("  Total Return:     %+.2f%%\n", s.TotalReturnPct)
	fmt.Printf("  Max Drawdown:     %.2f%%\n", s.MaxDrawdownPct)
	fmt.Printf("  Warning Days:     %d\n", s.WarningDays)
	if s.LiquidationDay != nil {
		fmt.Printf("  Liquidated:       day %d\n", *s.LiquidationDay)
	} else {
		fmt.Printf("  Liquidated:       no\n")
	}
	fmt.Printf("  Rebalances:       %d\n", s.RebalanceCount)
	fmt.Printf("  Leverage-ups:     %d\n", s.LeverageUpCount)
	fmt.Println()
}
