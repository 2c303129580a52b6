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
	// Trading metrics
	TradesProcessed prometheus.Counter
	TradesRejected  *prometheus.CounterVec
	TradeVolume     prometheus.Counter
	RiskScores      prometheus.Histogram

	// Curve metrics
	CurvePrice     *prometheus.GaugeVec
	TokensLaunched prometheus.Counter
	HumanTrades    prometheus.Counter
	BotTrades      prometheus.Counter

	// Session metrics
	ActiveSessions   prometheus.Gauge
	FlaggedSessions  prometheus.Gauge
	SessionsCreated  prometheus.Counter
	SessionsEvicted  prometheus.Counter
	SuspiciousUsers  prometheus.Gauge
	CommunityReports prometheus.Counter

	// Verification metrics
	VerificationsPerformed *prometheus.CounterVec
	VerificationFailures   prometheus.Counter

	// Feed metrics
	FeedClients         prometheus.Gauge
	FeedEventsBroadcast prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "humanpad"
	}

	return &Metrics{
		// Trading metrics
		TradesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "trades_processed_total",
			Help:      "Total number of trades executed against the curve",
		}),
		TradesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "trades_rejected_total",
			Help:      "Total number of rejected trade attempts by reason",
		}, []string{"reason"}),
		TradeVolume: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "trade_volume_total",
			Help:      "Cumulative traded volume in quote currency",
		}),
		RiskScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "risk_score",
			Help:      "Distribution of computed risk scores",
			Buckets:   []float64{5, 15, 30, 50, 70, 80, 90, 95, 100},
		}),

		// Curve metrics
		CurvePrice: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "curve",
			Name:      "current_price",
			Help:      "Current bonding curve price by token",
		}, []string{"token_id"}),
		TokensLaunched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "curve",
			Name:      "tokens_launched_total",
			Help:      "Total number of tokens launched",
		}),
		HumanTrades: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "curve",
			Name:      "human_trades_total",
			Help:      "Total number of trades classified as human",
		}),
		BotTrades: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "curve",
			Name:      "bot_trades_total",
			Help:      "Total number of trades classified as bot",
		}),

		// Session metrics
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Current number of active trading sessions",
		}),
		FlaggedSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "flagged",
			Help:      "Current number of sessions marked suspicious",
		}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Total number of trading sessions created",
		}),
		SessionsEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "evicted_total",
			Help:      "Total number of idle sessions evicted",
		}),
		SuspiciousUsers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "suspicious_users",
			Help:      "Current size of the suspicious-user set",
		}),
		CommunityReports: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "community_reports_total",
			Help:      "Total number of community manipulation reports",
		}),

		// Verification metrics
		VerificationsPerformed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "performed_total",
			Help:      "Total number of verifications by resulting level",
		}, []string{"level"}),
		VerificationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "failures_total",
			Help:      "Total number of malformed verification requests",
		}),

		// Feed metrics
		FeedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "clients",
			Help:      "Current number of connected trade feed clients",
		}),
		FeedEventsBroadcast: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_broadcast_total",
			Help:      "Total number of trade events broadcast to the feed",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query latency by database and operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTradeProcessed records one executed trade.
func RecordTradeProcessed(tokenID string, amount, newPrice float64, riskScore int, human bool) {
	DefaultMetrics.TradesProcessed.Inc()
	DefaultMetrics.TradeVolume.Add(amount)
	DefaultMetrics.RiskScores.Observe(float64(riskScore))
	DefaultMetrics.CurvePrice.WithLabelValues(tokenID).Set(newPrice)
	if human {
		DefaultMetrics.HumanTrades.Inc()
	} else {
		DefaultMetrics.BotTrades.Inc()
	}
}

// RecordTradeRejected records a rejected trade attempt.
func RecordTradeRejected(reason string, riskScore int) {
	DefaultMetrics.TradesRejected.WithLabelValues(reason).Inc()
	DefaultMetrics.RiskScores.Observe(float64(riskScore))
}

// RecordTokenLaunched increments the launched-token counter.
func RecordTokenLaunched(tokenID string, basePrice float64) {
	DefaultMetrics.TokensLaunched.Inc()
	DefaultMetrics.CurvePrice.WithLabelValues(tokenID).Set(basePrice)
}

// RecordSessionCreated increments the session-created counter.
func RecordSessionCreated() {
	DefaultMetrics.SessionsCreated.Inc()
}

// RecordSessionsEvicted adds to the eviction counter.
func RecordSessionsEvicted(n int) {
	DefaultMetrics.SessionsEvicted.Add(float64(n))
}

// UpdateSessionGauges refreshes the session and suspicious-set gauges.
func UpdateSessionGauges(active, flagged, suspicious int) {
	DefaultMetrics.ActiveSessions.Set(float64(active))
	DefaultMetrics.FlaggedSessions.Set(float64(flagged))
	DefaultMetrics.SuspiciousUsers.Set(float64(suspicious))
}

// RecordVerification records a successful classification.
func RecordVerification(level string) {
	DefaultMetrics.VerificationsPerformed.WithLabelValues(level).Inc()
}

// RecordVerificationFailure records a malformed verification request.
func RecordVerificationFailure() {
	DefaultMetrics.VerificationFailures.Inc()
}

// RecordCommunityReport increments the report counter.
func RecordCommunityReport() {
	DefaultMetrics.CommunityReports.Inc()
}

// RecordFeedBroadcast increments the broadcast counter.
func RecordFeedBroadcast() {
	DefaultMetrics.FeedEventsBroadcast.Inc()
}

// UpdateFeedClients sets the connected-client gauge.
func UpdateFeedClients(n int) {
	DefaultMetrics.FeedClients.Set(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
