package observability

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	routerMetricsOnce sync.Once
	routerRegistry    *RouterMetrics
)

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record instruction-dispatch activity (perp/router.Engine.Dispatch).
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "perpcore",
				Subsystem: "module",
				Name:      "requests_total",
				Help:      "Total instruction dispatches segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "perpcore",
				Subsystem: "module",
				Name:      "errors_total",
				Help:      "Total instruction errors segmented by module, method, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "perpcore",
				Subsystem: "module",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for instruction handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "perpcore",
				Subsystem: "module",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to pause or rate-limit policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a dispatched instruction. status follows the
// router's own error taxonomy (0 for success, otherwise a stable numeric code
// a caller assigns per error kind).
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status != 0 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status != 0 {
		m.errors.WithLabelValues(module, method, statusLabel(status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "paused" or
// "rate_limited" (perp/router.ErrPaused / ErrRateLimited) so dashboards and
// alerts remain consistent.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// RouterMetrics tracks the health of the Execute pipeline: fill latency,
// per-slab exposure headroom, oracle freshness, and liquidation activity.
// Grounded on the teacher's PayoutdMetrics (latency/cap/errors/pause gauge
// shape) and OracleAttesterdMetrics (freshness gauge), repurposed from
// payout/attestation throughput to commit_fill throughput.
type RouterMetrics struct {
	fillLatency      *prometheus.HistogramVec
	exposureRemain   *prometheus.GaugeVec
	exposureUtilized *prometheus.GaugeVec
	oracleFreshness  *prometheus.GaugeVec
	liquidations     *prometheus.CounterVec
	errors           *prometheus.CounterVec
	pauseEngaged     *prometheus.GaugeVec
}

// Router returns the singleton metrics registry for the Execute pipeline.
func Router() *RouterMetrics {
	routerMetricsOnce.Do(func() {
		routerRegistry = &RouterMetrics{
			fillLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "perpcore",
				Subsystem: "router",
				Name:      "fill_latency_seconds",
				Help:      "Latency distribution for completed commit_fill calls.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"slab"}),
			exposureRemain: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "perpcore",
				Subsystem: "router",
				Name:      "exposure_cap_remaining",
				Help:      "Remaining per-slab router exposure cap in accounting units.",
			}, []string{"slab"}),
			exposureUtilized: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "perpcore",
				Subsystem: "router",
				Name:      "exposure_cap_utilization",
				Help:      "Ratio of consumed per-slab exposure cap for the current mark (0-1).",
			}, []string{"slab"}),
			oracleFreshness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "perpcore",
				Subsystem: "router",
				Name:      "oracle_freshness_seconds",
				Help:      "Age in seconds between the oracle quote timestamp and the fill that consumed it.",
			}, []string{"slab"}),
			liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "perpcore",
				Subsystem: "router",
				Name:      "liquidations_total",
				Help:      "Count of liquidation flags recorded, segmented by preliq vs full.",
			}, []string{"kind"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "perpcore",
				Subsystem: "router",
				Name:      "errors_total",
				Help:      "Count of Execute failures segmented by slab and reason.",
			}, []string{"slab", "reason"}),
			pauseEngaged: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "perpcore",
				Subsystem: "router",
				Name:      "pause_engaged",
				Help:      "Indicates whether a module's circuit breaker is active (1) or not (0).",
			}, []string{"module"}),
		}
		prometheus.MustRegister(
			routerRegistry.fillLatency,
			routerRegistry.exposureRemain,
			routerRegistry.exposureUtilized,
			routerRegistry.oracleFreshness,
			routerRegistry.liquidations,
			routerRegistry.errors,
			routerRegistry.pauseEngaged,
		)
	})
	return routerRegistry
}

// ObserveFill records a completed commit_fill's latency for slab.
func (m *RouterMetrics) ObserveFill(slab string, d time.Duration) {
	if m == nil {
		return
	}
	m.fillLatency.WithLabelValues(labelSlab(slab)).Observe(d.Seconds())
}

// RecordExposure updates the remaining cap and utilisation gauges for slab.
func (m *RouterMetrics) RecordExposure(slab string, remaining, cap int64) {
	if m == nil {
		return
	}
	label := labelSlab(slab)
	m.exposureRemain.WithLabelValues(label).Set(float64(remaining))
	utilisation := 0.0
	if cap > 0 {
		used := cap - remaining
		if used < 0 {
			used = 0
		}
		utilisation = float64(used) / float64(cap)
		if utilisation > 1 {
			utilisation = 1
		}
	}
	m.exposureUtilized.WithLabelValues(label).Set(utilisation)
}

// RecordOracleFreshness records how stale the quote consumed by a fill was.
func (m *RouterMetrics) RecordOracleFreshness(slab string, age time.Duration) {
	if m == nil {
		return
	}
	m.oracleFreshness.WithLabelValues(labelSlab(slab)).Set(age.Seconds())
}

// RecordLiquidation increments the liquidation counter for kind ("preliq" or
// "full").
func (m *RouterMetrics) RecordLiquidation(kind string) {
	if m == nil {
		return
	}
	if kind = strings.TrimSpace(kind); kind == "" {
		kind = "full"
	}
	m.liquidations.WithLabelValues(kind).Inc()
}

// RecordError increments the error counter for the supplied slab and reason.
func (m *RouterMetrics) RecordError(slab, reason string) {
	if m == nil {
		return
	}
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = "unspecified"
	}
	m.errors.WithLabelValues(labelSlab(slab), reason).Inc()
}

// SetPause toggles the pause_engaged gauge for module.
func (m *RouterMetrics) SetPause(module string, engaged bool) {
	if m == nil {
		return
	}
	value := 0.0
	if engaged {
		value = 1
	}
	m.pauseEngaged.WithLabelValues(labelModule(module)).Set(value)
}

func labelSlab(slab string) string {
	trimmed := strings.TrimSpace(slab)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}

func labelModule(module string) string {
	trimmed := strings.TrimSpace(module)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}

func statusLabel(status int) string {
	if status == 0 {
		return "ok"
	}
	return strconv.Itoa(status)
}
