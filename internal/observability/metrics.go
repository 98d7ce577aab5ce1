package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "studentdiary"

// Metrics owns a private registry. All methods are safe on a nil receiver so components can
// run without metrics wired in.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	providerCalls   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	providerRetries *prometheus.CounterVec

	enrichmentOutcomes *prometheus.CounterVec
	enrichmentLatency  prometheus.Histogram
	queueDepth         prometheus.Gauge
	queueDropped       prometheus.Counter
	sweepRequeued      prometheus.Counter

	reflections *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "api", Name: "requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "api", Name: "request_duration_seconds",
			Help: "HTTP request latency.", Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "api", Name: "inflight_requests",
			Help: "Requests currently being served.",
		}),
		providerCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "provider", Name: "calls_total",
			Help: "Provider operations by provider, operation and outcome.",
		}, []string{"provider", "operation", "outcome"}),
		providerLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "provider", Name: "call_duration_seconds",
			Help: "Provider operation latency including retries.", Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 60},
		}, []string{"provider", "operation"}),
		providerRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "provider", Name: "retries_total",
			Help: "Retried provider attempts after a transient failure.",
		}, []string{"provider", "operation"}),
		enrichmentOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "enrichment", Name: "outcomes_total",
			Help: "Terminal enrichment outcomes by resulting status.",
		}, []string{"status"}),
		enrichmentLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "enrichment", Name: "duration_seconds",
			Help: "End-to-end enrichment latency.", Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "enrichment", Name: "queue_depth",
			Help: "Entries waiting for a worker.",
		}),
		queueDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "enrichment", Name: "queue_full_total",
			Help: "Enqueue attempts rejected because the queue was full.",
		}),
		sweepRequeued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "enrichment", Name: "sweep_requeued_total",
			Help: "Stale entries re-enqueued by the recovery sweep.",
		}),
		reflections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reflection", Name: "generated_total",
			Help: "Daily reflections served by source (generated, cached, fallback).",
		}, []string{"source"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveProviderCall(provider, operation, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(provider, operation, outcome).Inc()
	m.providerLatency.WithLabelValues(provider, operation).Observe(dur.Seconds())
}

func (m *Metrics) IncProviderRetry(provider, operation string) {
	if m == nil {
		return
	}
	m.providerRetries.WithLabelValues(provider, operation).Inc()
}

func (m *Metrics) ObserveEnrichment(status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.enrichmentOutcomes.WithLabelValues(status).Inc()
	m.enrichmentLatency.Observe(dur.Seconds())
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) IncQueueFull() {
	if m == nil {
		return
	}
	m.queueDropped.Inc()
}

func (m *Metrics) AddSweepRequeued(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sweepRequeued.Add(float64(n))
}

func (m *Metrics) IncReflection(source string) {
	if m == nil {
		return
	}
	m.reflections.WithLabelValues(source).Inc()
}
