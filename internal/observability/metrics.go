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
	// Decode metrics
	AccountsDecoded  *prometheus.CounterVec
	DecodeErrors     *prometheus.CounterVec
	InstructionsSeen *prometheus.CounterVec

	// Normalizer metrics
	SwapEventsProduced      *prometheus.CounterVec
	LiquidityEventsProduced *prometheus.CounterVec
	AmbiguousTransactions   prometheus.Counter

	// Monitor metrics
	PoolsDiscovered prometheus.Counter
	PoolTasks       *prometheus.GaugeVec
	PoolsEvicted    prometheus.Counter
	StaleUpdates    prometheus.Counter
	PriceAlerts     prometheus.Counter
	CallbackPanics  *prometheus.CounterVec

	// Persist queue metrics
	PersistQueueDepth prometheus.Gauge
	PersistErrors     prometheus.Counter
	RecordsPersisted  *prometheus.CounterVec

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec
	PollDuration   prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_pool_monitor"
	}

	return &Metrics{
		// Decode metrics
		AccountsDecoded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "accounts_decoded_total",
			Help:      "Total number of pool accounts decoded by protocol",
		}, []string{"protocol"}),
		DecodeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "errors_total",
			Help:      "Total number of decode failures by protocol and reason",
		}, []string{"protocol", "reason"}),
		InstructionsSeen: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "instructions_seen_total",
			Help:      "Total number of recognized instructions by protocol and name",
		}, []string{"protocol", "name"}),

		// Normalizer metrics
		SwapEventsProduced: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "swap_events_total",
			Help:      "Total number of swap events produced by protocol",
		}, []string{"protocol"}),
		LiquidityEventsProduced: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "liquidity_events_total",
			Help:      "Total number of liquidity events produced by type",
		}, []string{"event_type"}),
		AmbiguousTransactions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "ambiguous_transactions_total",
			Help:      "Total number of transactions suppressed as ambiguous",
		}),

		// Monitor metrics
		PoolsDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "pools_discovered_total",
			Help:      "Total number of pools added to monitoring",
		}),
		PoolTasks: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "pool_tasks",
			Help:      "Current number of pool tasks by lifecycle state",
		}, []string{"state"}),
		PoolsEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "pools_evicted_total",
			Help:      "Total number of pools evicted for inactivity",
		}),
		StaleUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "stale_updates_total",
			Help:      "Total number of account updates rejected as stale",
		}),
		PriceAlerts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "price_alerts_total",
			Help:      "Total number of price alerts emitted",
		}),
		CallbackPanics: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "callback_panics_total",
			Help:      "Total number of recovered subscriber callback panics by category",
		}, []string{"category"}),

		// Persist queue metrics
		PersistQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "persist",
			Name:      "queue_depth",
			Help:      "Current number of records waiting in the persist queue",
		}),
		PersistErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persist",
			Name:      "errors_total",
			Help:      "Total number of failed persist operations",
		}),
		RecordsPersisted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persist",
			Name:      "records_total",
			Help:      "Total number of records persisted by kind",
		}, []string{"kind"}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "RPC call latency by method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		PollDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "poll_duration_seconds",
			Help:      "Duration of one pool poll cycle",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordAccountDecoded increments the decoded accounts counter.
func RecordAccountDecoded(protocol string) {
	DefaultMetrics.AccountsDecoded.WithLabelValues(protocol).Inc()
}

// RecordDecodeError records a decode failure.
func RecordDecodeError(protocol, reason string) {
	DefaultMetrics.DecodeErrors.WithLabelValues(protocol, reason).Inc()
}

// RecordInstruction records a recognized instruction.
func RecordInstruction(protocol, name string) {
	DefaultMetrics.InstructionsSeen.WithLabelValues(protocol, name).Inc()
}

// RecordSwapEvent increments the produced swap events counter.
func RecordSwapEvent(protocol string) {
	DefaultMetrics.SwapEventsProduced.WithLabelValues(protocol).Inc()
}

// RecordLiquidityEvent increments the produced liquidity events counter.
func RecordLiquidityEvent(eventType string) {
	DefaultMetrics.LiquidityEventsProduced.WithLabelValues(eventType).Inc()
}

// RecordAmbiguous increments the ambiguous transactions counter.
func RecordAmbiguous() {
	DefaultMetrics.AmbiguousTransactions.Inc()
}

// RecordPoolDiscovered increments the discovered pools counter.
func RecordPoolDiscovered() {
	DefaultMetrics.PoolsDiscovered.Inc()
}

// UpdatePoolTasks sets the task gauge for a lifecycle state.
func UpdatePoolTasks(state string, count int) {
	DefaultMetrics.PoolTasks.WithLabelValues(state).Set(float64(count))
}

// RecordPoolEvicted increments the evicted pools counter.
func RecordPoolEvicted() {
	DefaultMetrics.PoolsEvicted.Inc()
}

// RecordStaleUpdate increments the stale updates counter.
func RecordStaleUpdate() {
	DefaultMetrics.StaleUpdates.Inc()
}

// RecordPriceAlert increments the price alerts counter.
func RecordPriceAlert() {
	DefaultMetrics.PriceAlerts.Inc()
}

// RecordCallbackPanic records a recovered subscriber panic.
func RecordCallbackPanic(category string) {
	DefaultMetrics.CallbackPanics.WithLabelValues(category).Inc()
}

// UpdatePersistQueueDepth sets the persist queue depth gauge.
func UpdatePersistQueueDepth(depth int) {
	DefaultMetrics.PersistQueueDepth.Set(float64(depth))
}

// RecordPersist records one persisted record, or a persist error.
func RecordPersist(kind string, err error) {
	if err != nil {
		DefaultMetrics.PersistErrors.Inc()
		return
	}
	DefaultMetrics.RecordsPersisted.WithLabelValues(kind).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordPollDuration records the duration of one poll cycle.
func RecordPollDuration(seconds float64) {
	DefaultMetrics.PollDuration.Observe(seconds)
}
