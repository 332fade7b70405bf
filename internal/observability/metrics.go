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
	EligibleBots       prometheus.Gauge
	LastSuccessfulPass prometheus.Gauge

	// Attempt metrics
	AttemptsTotal   *prometheus.CounterVec
	AttemptDuration prometheus.Histogram
	TradesTotal     *prometheus.CounterVec
	TradedXRP       *prometheus.CounterVec
	BotsPaused      *prometheus.CounterVec

	// Ledger metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCErrors      *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Notification metrics
	NotificationErrors prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "xrpl_amm_bot"
	}

	return &Metrics{
		PassesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "passes_total",
			Help:      "Total number of executor passes by status",
		}, []string{"status"}),
		PassDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "pass_duration_seconds",
			Help:      "Executor pass duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		EligibleBots: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "eligible_bots",
			Help:      "Number of bots selected by the last pass",
		}),
		LastSuccessfulPass: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pass_timestamp",
			Help:      "Unix timestamp of last completed pass",
		}),

		AttemptsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "attempts_total",
			Help:      "Total number of bot attempts by outcome kind",
		}, []string{"kind"}),
		AttemptDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "attempt_duration_seconds",
			Help:      "Single bot attempt duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
		}),
		TradesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "trades_total",
			Help:      "Total number of validated trades by direction",
		}, []string{"direction"}),
		TradedXRP: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "traded_xrp_total",
			Help:      "XRP volume of validated trades by direction",
		}, []string{"direction"}),
		BotsPaused: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "bots_paused_total",
			Help:      "Total number of bots paused by error kind",
		}, []string{"kind"}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "xrpl",
			Name:      "rpc_call_latency_seconds",
			Help:      "XRPL websocket request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		RPCErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "xrpl",
			Name:      "rpc_errors_total",
			Help:      "Total number of failed XRPL requests",
		}, []string{"command"}),

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

		NotificationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "errors_total",
			Help:      "Total number of failed operator notifications",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPass records a finished pass.
func RecordPass(status string, durationSeconds float64, eligible int) {
	DefaultMetrics.PassesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.PassDuration.Observe(durationSeconds)
	DefaultMetrics.EligibleBots.Set(float64(eligible))
}

// MarkPassCompleted updates the last successful pass timestamp.
func MarkPassCompleted(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulPass.Set(float64(unixSeconds))
}

// RecordAttempt records a bot attempt outcome. kind is "success" for validated trades.
func RecordAttempt(kind string, durationSeconds float64) {
	DefaultMetrics.AttemptsTotal.WithLabelValues(kind).Inc()
	DefaultMetrics.AttemptDuration.Observe(durationSeconds)
}

// RecordTrade records a validated trade.
func RecordTrade(direction string, xrpAmount float64) {
	DefaultMetrics.TradesTotal.WithLabelValues(direction).Inc()
	DefaultMetrics.TradedXRP.WithLabelValues(direction).Add(xrpAmount)
}

// RecordBotPaused records a bot being paused.
func RecordBotPaused(kind string) {
	DefaultMetrics.BotsPaused.WithLabelValues(kind).Inc()
}

// RecordRPC records XRPL request latency and failures.
func RecordRPC(command string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(command).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCErrors.WithLabelValues(command).Inc()
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordNotificationError counts a failed notification.
func RecordNotificationError() {
	DefaultMetrics.NotificationErrors.Inc()
}
