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
	// Pass metrics
	PassesTotal        *prometheus.CounterVec
	PassDuration       prometheus.Histogram
	ClosedLotsProduced prometheus.Counter
	PreHistoryLots     prometheus.Counter
	RejectedTrades     prometheus.Counter
	LockConflicts      prometheus.Counter
	WalletScore        prometheus.Histogram

	// Sweep metrics
	SweepWalletsTotal *prometheus.CounterVec
	SweepDuration     prometheus.Histogram

	// Oracle metrics
	OracleLookups *prometheus.CounterVec
	PriceCache    *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// API metrics
	HTTPRequests     *prometheus.CounterVec
	WSClients        prometheus.Gauge
	WSMessagesQueued prometheus.Counter

	// Health metrics
	LastSuccessfulPass  prometheus.Gauge
	LastSuccessfulSweep prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	return newMetrics(namespace, promauto.With(prometheus.DefaultRegisterer))
}

func newMetrics(namespace string, f promauto.Factory) *Metrics {
	if namespace == "" {
		namespace = "wallet_ledger"
	}

	return &Metrics{
		// Pass metrics
		PassesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pass",
			Name:      "runs_total",
			Help:      "Total number of wallet passes by status",
		}, []string{"status"}),
		PassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pass",
			Name:      "duration_seconds",
			Help:      "Wallet pass duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ClosedLotsProduced: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pass",
			Name:      "closed_lots_total",
			Help:      "Total number of closed lots committed",
		}),
		PreHistoryLots: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pass",
			Name:      "pre_history_lots_total",
			Help:      "Total number of pre-history lots committed",
		}),
		RejectedTrades: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pass",
			Name:      "rejected_trades_total",
			Help:      "Total number of trades rejected by validation",
		}),
		LockConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pass",
			Name:      "lock_conflicts_total",
			Help:      "Total number of passes aborted because the wallet was locked",
		}),
		WalletScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pass",
			Name:      "wallet_score",
			Help:      "Distribution of committed composite scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),

		// Sweep metrics
		SweepWalletsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "wallets_total",
			Help:      "Total number of wallets handled by sweeps by status",
		}, []string{"status"}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Sweep execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),

		// Oracle metrics
		OracleLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "lookups_total",
			Help:      "Total number of oracle lookups by result",
		}, []string{"result"}),
		PriceCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "cache_total",
			Help:      "Price cache lookups by result (hit, miss, stale)",
		}, []string{"result"}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// API metrics
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		WSClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_clients",
			Help:      "Number of connected websocket clients",
		}),
		WSMessagesQueued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_messages_total",
			Help:      "Total number of score updates queued to websocket clients",
		}),

		// Health metrics
		LastSuccessfulPass: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pass_timestamp",
			Help:      "Unix timestamp of last successful wallet pass",
		}),
		LastSuccessfulSweep: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_sweep_timestamp",
			Help:      "Unix timestamp of last successful sweep",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPass records a finished wallet pass. status is "ok", "conflict" or "error".
func RecordPass(status string, durationSeconds float64) {
	DefaultMetrics.PassesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.PassDuration.Observe(durationSeconds)
	if status == "conflict" {
		DefaultMetrics.LockConflicts.Inc()
	}
}

// RecordPassOutput records what a committed pass produced.
func RecordPassOutput(closedLots, preHistoryLots, rejected int, score float64, unixSeconds int64) {
	DefaultMetrics.ClosedLotsProduced.Add(float64(closedLots))
	DefaultMetrics.PreHistoryLots.Add(float64(preHistoryLots))
	DefaultMetrics.RejectedTrades.Add(float64(rejected))
	DefaultMetrics.WalletScore.Observe(score)
	DefaultMetrics.LastSuccessfulPass.Set(float64(unixSeconds))
}

// RecordSweepWallet records one wallet handled by a sweep.
// status is "ok", "skipped" or "error".
func RecordSweepWallet(status string) {
	DefaultMetrics.SweepWalletsTotal.WithLabelValues(status).Inc()
}

// RecordSweep records a finished sweep.
func RecordSweep(durationSeconds float64, unixSeconds int64) {
	DefaultMetrics.SweepDuration.Observe(durationSeconds)
	DefaultMetrics.LastSuccessfulSweep.Set(float64(unixSeconds))
}

// RecordOracleLookup records an oracle lookup. result is "ok", "unavailable" or "error".
func RecordOracleLookup(result string) {
	DefaultMetrics.OracleLookups.WithLabelValues(result).Inc()
}

// RecordPriceCache records a price cache lookup. result is "hit", "miss" or "stale".
func RecordPriceCache(result string) {
	DefaultMetrics.PriceCache.WithLabelValues(result).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordHTTPRequest records an API request.
func RecordHTTPRequest(route, code string) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, code).Inc()
}

// SetWSClients sets the websocket client gauge.
func SetWSClients(n int) {
	DefaultMetrics.WSClients.Set(float64(n))
}

// RecordWSMessage counts a score update queued to a websocket client.
func RecordWSMessage() {
	DefaultMetrics.WSMessagesQueued.Inc()
}
