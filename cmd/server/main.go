// Package main provides the HTTP API server for the solvency lab:
// - POST /api/v1/simulate: run a dual-strategy comparison and persist it
// - GET  /api/v1/runs, /api/v1/runs/{id}: query stored runs and events
// - GET  /api/v1/report: render the comparison report (markdown or CSV)
// - GET  /api/v1/stream: stream per-day position frames over WebSocket
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"collateral-lab/internal/domain"
	"collateral-lab/internal/observability"
	"collateral-lab/internal/pricing"
	"collateral-lab/internal/reporting"
	"collateral-lab/internal/simulation"
	"collateral-lab/internal/storage"
	chstore "collateral-lab/internal/storage/clickhouse"
	"collateral-lab/internal/storage/memory"
	"collateral-lab/internal/storage/migrations"
	pgstore "collateral-lab/internal/storage/postgres"
)

// Server holds the API components and request statistics.
type Server struct {
	runner    *simulation.Runner
	generator *reporting.Generator

	runStore    storage.SimulationRunStore
	eventStore  storage.PositionEventStore
	seriesStore storage.PriceSeriesStore

	cache    *pricing.SeriesCache
	upgrader websocket.Upgrader
	logger   *log.Logger

	// State
	mu          sync.Mutex
	started     time.Time
	simulations int
	reports     int
}

// allStores holds the storage implementations behind the server.
type allStores struct {
	runStore    storage.SimulationRunStore
	eventStore  storage.PositionEventStore
	seriesStore storage.PriceSeriesStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", envOr("HTTP_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, replay series)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	verbose := flag.Bool("verbose", false, "Verbose runner logging")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	server := &Server{
		runner: simulation.NewRunner(simulation.RunnerOptions{
			RunStore:    stores.runStore,
			EventStore:  stores.eventStore,
			SeriesStore: stores.seriesStore,
			Verbose:     *verbose,
		}),
		generator:   reporting.NewGenerator(stores.runStore, stores.eventStore),
		runStore:    stores.runStore,
		eventStore:  stores.eventStore,
		seriesStore: stores.seriesStore,
		cache:       pricing.NewSeriesCache(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		started: time.Now(),
	}

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.routes(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
	}()

	logger.Printf("Listening on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates the run, event and price series stores. Memory
// mode wires everything in-process; otherwise PostgreSQL is required
// and ClickHouse is optional (without it replay falls back to the
// built-in anchor tables). Migrations run on startup.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			runStore:    memory.NewSimulationRunStore(),
			eventStore:  memory.NewPositionEventStore(),
			seriesStore: memory.NewPriceSeriesStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	stores := &allStores{
		runStore:   pgstore.NewSimulationRunStore(pool),
		eventStore: pgstore.NewPositionEventStore(pool),
	}
	cleanup := func() { pool.Close() }

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		stores.seriesStore = chstore.NewPriceSeriesStore(conn)
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
	}

	return stores, cleanup, nil
}

// routes builds the HTTP mux with instrumentation.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	mux.HandleFunc("/api/v1/simulate", s.instrument("/api/v1/simulate", s.handleSimulate))
	mux.HandleFunc("/api/v1/runs", s.instrument("/api/v1/runs", s.handleRuns))
	mux.HandleFunc("/api/v1/runs/", s.instrument("/api/v1/runs/{id}", s.handleRunDetail))
	mux.HandleFunc("/api/v1/report", s.instrument("/api/v1/report", s.handleReport))
	mux.HandleFunc("/api/v1/series/seed", s.instrument("/api/v1/series/seed", s.handleSeedSeries))
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	return mux
}

// statusWriter captures the response status code for instrumentation.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// instrument records request duration and status per route.
func (s *Server) instrument(path string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h(sw, r)
		observability.RecordHTTPRequest(path, strconv.Itoa(sw.status), time.Since(start).Seconds())
	}
}

// SimulateRequest is the JSON body for POST /api/v1/simulate. Zero
// fields take the engine defaults.
type SimulateRequest struct {
	Asset            string   `json:"asset"`
	DebtAsset        string   `json:"debt_asset"`
	DepositValue     float64  `json:"deposit_value"`
	CollateralFactor float64  `json:"collateral_factor"`
	TargetHealth     *float64 `json:"target_health,omitempty"`
	MinHealth        *float64 `json:"min_health,omitempty"`
	MaxHealth        *float64 `json:"max_health,omitempty"`
	BorrowAPR        float64  `json:"borrow_apr"`
	SupplyAPY        float64  `json:"supply_apy"`
	VaultAPY         float64  `json:"vault_apy"`
	Mode             string   `json:"mode"`
	BasePrice        float64  `json:"base_price"`
	Days             int      `json:"days"`
	YearStart        int      `json:"year_start"`
	YearEnd          int      `json:"year_end"`
	TargetChangePct  float64  `json:"target_change_pct"`
	VolatilityTier   string   `json:"volatility_tier"`
	Shape            string   `json:"shape"`
}

// toConfig converts the request into an engine configuration.
func (req *SimulateRequest) toConfig() (domain.SimulationConfig, error) {
	switch req.Mode {
	case "", domain.ModeReplay, domain.ModeSynthetic:
	default:
		return domain.SimulationConfig{}, fmt.Errorf("unknown mode %q", req.Mode)
	}

	cfg := domain.SimulationConfig{
		Asset:            strings.ToUpper(strings.TrimSpace(req.Asset)),
		DebtAsset:        strings.ToUpper(strings.TrimSpace(req.DebtAsset)),
		DepositValue:     req.DepositValue,
		CollateralFactor: req.CollateralFactor,
		TargetHealth:     req.TargetHealth,
		MinHealth:        req.MinHealth,
		MaxHealth:        req.MaxHealth,
		BorrowAPR:        req.BorrowAPR,
		SupplyAPY:        req.SupplyAPY,
		VaultAPY:         req.VaultAPY,
		Mode:             req.Mode,
		BasePrice:        req.BasePrice,
		TotalDays:        req.Days,
		YearStart:        req.YearStart,
		YearEnd:          req.YearEnd,
		TargetChangePct:  req.TargetChangePct,
		VolatilityTier:   strings.ToLower(req.VolatilityTier),
		Shape:            strings.ToLower(req.Shape),
	}
	if cfg.Mode == domain.ModeReplay && cfg.YearStart == 0 {
		return domain.SimulationConfig{}, errors.New("replay mode requires year_start")
	}
	return cfg, nil
}

// handleSimulate runs a comparison and returns the stored run.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return
	}

	cfg, err := req.toConfig()
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg.Normalize()

	start := time.Now()
	run, err := s.runner.Execute(r.Context(), cfg, cfg.TotalDays)
	if err != nil {
		observability.RecordSimulation(cfg.Mode, "error", time.Since(start).Seconds(), 0)
		s.logger.Printf("Simulate error: %v", err)
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	observability.RecordSimulation(cfg.Mode, "success", time.Since(start).Seconds(), run.Days)
	observability.RecordEvents(run.Protected.RebalanceCount, run.Protected.LeverageUpCount)
	if run.Traditional.LiquidationDay != nil {
		observability.RecordLiquidation(string(domain.StrategyTraditional))
	}
	if run.Protected.LiquidationDay != nil {
		observability.RecordLiquidation(string(domain.StrategyProtected))
	}
	observability.RecordAdvantage(run.AdvantagePct)
	observability.DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()

	s.mu.Lock()
	s.simulations++
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, run)
}

// handleRuns lists stored runs, optionally filtered by ?asset=.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	var (
		runs []*domain.SimulationRun
		err  error
	)
	if asset := r.URL.Query().Get("asset"); asset != "" {
		runs, err = s.runStore.GetByAsset(r.Context(), strings.ToUpper(asset))
	} else {
		runs, err = s.runStore.List(r.Context())
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(runs),
		"runs":  runs,
	})
}

// handleRunDetail returns a single run with its event log.
func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	runID := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	if runID == "" {
		httpError(w, http.StatusBadRequest, "run id required")
		return
	}

	run, err := s.runStore.GetByID(r.Context(), runID)
	if errors.Is(err, storage.ErrNotFound) {
		httpError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	events, err := s.eventStore.GetByRunID(r.Context(), runID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run":    run,
		"events": events,
	})
}

// handleReport renders the comparison report over all stored runs.
// ?format=csv returns the per-run CSV, anything else the markdown.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	report, err := s.generator.Generate(r.Context())
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	observability.DefaultMetrics.ReportsGenerated.Inc()
	s.mu.Lock()
	s.reports++
	s.mu.Unlock()

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(reporting.RenderCSV(report.Runs)))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(reporting.RenderMarkdown(report)))
}

// SeedSeriesRequest is the JSON body for POST /api/v1/series/seed.
type SeedSeriesRequest struct {
	Asset     string `json:"asset"`
	YearStart int    `json:"year_start"`
	YearEnd   int    `json:"year_end"`
}

// handleSeedSeries expands a built-in replay series into the price
// series store.
func (s *Server) handleSeedSeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req SeedSeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return
	}
	if req.Asset == "" || req.YearStart == 0 {
		httpError(w, http.StatusBadRequest, "asset and year_start are required")
		return
	}
	if req.YearEnd == 0 {
		req.YearEnd = req.YearStart
	}

	asset := strings.ToUpper(strings.TrimSpace(req.Asset))
	points, err := s.runner.SeedSeries(r.Context(), asset, req.YearStart, req.YearEnd)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"series_id": fmt.Sprintf("%s:%d-%d", asset, req.YearStart, req.YearEnd),
		"points":    points,
	})
}

// StreamFrame is one per-day WebSocket message: both strategies' states
// at the same price, plus any control events recorded that day.
type StreamFrame struct {
	Day         int                    `json:"day"`
	Price       float64                `json:"price"`
	Traditional domain.Position        `json:"traditional"`
	Protected   domain.Position        `json:"protected"`
	Events      []domain.PositionEvent `json:"events,omitempty"`
}

// handleStream simulates a comparison from query parameters and streams
// one frame per day over a WebSocket. Query parameters mirror the
// simulate request fields (asset, mode, shape, change_pct, days,
// base_price, year_start, year_end, tier); ?interval= paces the frames.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	cfg, err := streamConfig(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg.Normalize()

	interval := time.Duration(0)
	if v := r.URL.Query().Get("interval"); v != "" {
		interval, err = time.ParseDuration(v)
		if err != nil {
			httpError(w, http.StatusBadRequest, fmt.Sprintf("invalid interval: %v", err))
			return
		}
	}

	provider, err := pricing.FromConfig(cfg, s.cache)
	if err != nil {
		httpError(w, http.StatusBadRequest, fmt.Sprintf("resolve price provider: %v", err))
		return
	}

	engine := simulation.New(cfg, provider)
	traditional, protected, err := engine.Compare(cfg.TotalDays)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	observability.DefaultMetrics.WSStreamsActive.Inc()
	defer observability.DefaultMetrics.WSStreamsActive.Dec()

	ctx := r.Context()
	for day := 0; day < len(traditional.Days); day++ {
		frame := StreamFrame{
			Day:         day,
			Price:       traditional.Days[day].Price,
			Traditional: traditional.Days[day],
			Protected:   protected.Days[day],
		}
		frame.Events = append(frame.Events, traditional.EventsOn(day)...)
		frame.Events = append(frame.Events, protected.EventsOn(day)...)

		if err := conn.WriteJSON(frame); err != nil {
			s.logger.Printf("WebSocket write failed at day %d: %v", day, err)
			return
		}
		observability.DefaultMetrics.WSFramesSent.Inc()

		if interval > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
		}
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// streamConfig builds a simulation config from stream query parameters.
func streamConfig(r *http.Request) (domain.SimulationConfig, error) {
	q := r.URL.Query()

	cfg := domain.SimulationConfig{
		Asset:          strings.ToUpper(q.Get("asset")),
		Mode:           q.Get("mode"),
		Shape:          strings.ToLower(q.Get("shape")),
		VolatilityTier: strings.ToLower(q.Get("tier")),
	}
	switch cfg.Mode {
	case "", domain.ModeReplay, domain.ModeSynthetic:
	default:
		return domain.SimulationConfig{}, fmt.Errorf("unknown mode %q", cfg.Mode)
	}

	var err error
	if cfg.TotalDays, err = queryInt(q.Get("days")); err != nil {
		return domain.SimulationConfig{}, fmt.Errorf("invalid days: %w", err)
	}
	if cfg.YearStart, err = queryInt(q.Get("year_start")); err != nil {
		return domain.SimulationConfig{}, fmt.Errorf("invalid year_start: %w", err)
	}
	if cfg.YearEnd, err = queryInt(q.Get("year_end")); err != nil {
		return domain.SimulationConfig{}, fmt.Errorf("invalid year_end: %w", err)
	}
	if cfg.BasePrice, err = queryFloat(q.Get("base_price")); err != nil {
		return domain.SimulationConfig{}, fmt.Errorf("invalid base_price: %w", err)
	}
	if cfg.TargetChangePct, err = queryFloat(q.Get("change_pct")); err != nil {
		return domain.SimulationConfig{}, fmt.Errorf("invalid change_pct: %w", err)
	}
	if cfg.DepositValue, err = queryFloat(q.Get("deposit")); err != nil {
		return domain.SimulationConfig{}, fmt.Errorf("invalid deposit: %w", err)
	}

	if cfg.Mode == domain.ModeReplay && cfg.YearStart == 0 {
		return domain.SimulationConfig{}, errors.New("replay mode requires year_start")
	}
	return cfg, nil
}

func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func queryFloat(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseFloat(v, 64)
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	Started     time.Time `json:"started"`
	Simulations int       `json:"simulations"`
	Reports     int       `json:"reports"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.started).String(),
		Started:     s.started,
		Simulations: s.simulations,
		Reports:     s.reports,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
