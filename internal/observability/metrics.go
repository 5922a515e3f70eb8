// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Simulation metrics
	SimulationsTotal    *prometheus.CounterVec
	SimulationDuration  *prometheus.HistogramVec
	SimulatedDaysTotal  prometheus.Counter
	RebalancesTotal     prometheus.Counter
	LeverageUpsTotal    prometheus.Counter
	LiquidationsTotal   *prometheus.CounterVec
	AdvantageLastRunPct prometheus.Gauge

	// Reporting metrics
	ReportsGenerated prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// API metrics
	HTTPRequestDuration *prometheus.HistogramVec
	WSStreamsActive     prometheus.Gauge
	WSFramesSent        prometheus.Counter

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "collateral_lab"
	}

	return &Metrics{
		// Simulation metrics
		SimulationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Total number of simulation runs by mode and status",
		}, []string{"mode", "status"}),
		SimulationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "duration_seconds",
			Help:      "Simulation execution duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"mode"}),
		SimulatedDaysTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "days_total",
			Help:      "Total number of position-days simulated",
		}),
		RebalancesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "rebalances_total",
			Help:      "Total number of rebalance-down events across runs",
		}),
		LeverageUpsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "leverage_ups_total",
			Help:      "Total number of leverage-up events across runs",
		}),
		LiquidationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "liquidations_total",
			Help:      "Total number of liquidations by strategy",
		}, []string{"strategy"}),
		AdvantageLastRunPct: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "advantage_last_run_pct",
			Help:      "Protected-over-Traditional return advantage of the most recent run",
		}),

		// Reporting metrics
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// API metrics
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "status"}),
		WSStreamsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_streams_active",
			Help:      "Number of active WebSocket trajectory streams",
		}),
		WSFramesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_frames_sent_total",
			Help:      "Total number of day frames sent over WebSocket streams",
		}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful simulation run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSimulation records one completed (or failed) simulation run.
func RecordSimulation(mode, status string, durationSeconds float64, days int) {
	DefaultMetrics.SimulationsTotal.WithLabelValues(mode, status).Inc()
	DefaultMetrics.SimulationDuration.WithLabelValues(mode).Observe(durationSeconds)
	if days > 0 {
		DefaultMetrics.SimulatedDaysTotal.Add(float64(days))
	}
}

// RecordEvents updates the event counters after a run.
func RecordEvents(rebalances, leverageUps int) {
	if rebalances > 0 {
		DefaultMetrics.RebalancesTotal.Add(float64(rebalances))
	}
	if leverageUps > 0 {
		DefaultMetrics.LeverageUpsTotal.Add(float64(leverageUps))
	}
}

// RecordLiquidation increments the liquidation counter for a strategy.
func RecordLiquidation(strategy string) {
	DefaultMetrics.LiquidationsTotal.WithLabelValues(strategy).Inc()
}

// RecordAdvantage records the advantage of the most recent run.
func RecordAdvantage(pct float64) {
	DefaultMetrics.AdvantageLastRunPct.Set(pct)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordHTTPRequest records one API request.
func RecordHTTPRequest(path, status string, seconds float64) {
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(path, status).Observe(seconds)
}
