// Package metrics exports conversion events as Prometheus metrics.
//
// A Collector receives events from the converter through plain method calls
// and owns every metric it registers, so several collectors on separate
// registries can coexist in tests.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "office2pdf"

// OutcomeOK labels successful conversions and engine runs.
const OutcomeOK = "ok"

// Collector records conversion events.
type Collector struct {
	conversions   *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	queueWait     prometheus.Histogram
	engineRuns    *prometheus.CounterVec
	engineSeconds prometheus.Histogram
	retries       prometheus.Counter
	cacheLookups  *prometheus.CounterVec
}

// New creates a Collector and registers its metrics with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Conversions by input format and outcome (ok or failure kind).",
		}, []string{"format", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "End-to-end conversion latency, queueing included.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}, []string{"format"}),
		queueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_wait_seconds",
			Help:      "Time spent waiting for an engine slot.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		engineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_runs_total",
			Help:      "Engine subprocess runs by outcome.",
		}, []string{"outcome"}),
		engineSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_run_seconds",
			Help:      "Wall-clock time of a single engine subprocess.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_retries_total",
			Help:      "Engine runs repeated after a timeout.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
	}
	reg.MustRegister(c.conversions, c.duration, c.queueWait, c.engineRuns,
		c.engineSeconds, c.retries, c.cacheLookups)
	return c
}

// OnAdmitted records how long a job queued for its engine slot.
func (c *Collector) OnAdmitted(_ context.Context, wait time.Duration) {
	c.queueWait.Observe(wait.Seconds())
}

// OnEngineRun records one engine subprocess run.
func (c *Collector) OnEngineRun(_ context.Context, attempt int, d time.Duration, outcome string) {
	if attempt > 1 {
		c.retries.Inc()
	}
	c.engineRuns.WithLabelValues(outcome).Inc()
	c.engineSeconds.Observe(d.Seconds())
}

// OnCacheLookup records a result cache lookup.
func (c *Collector) OnCacheLookup(_ context.Context, result string) {
	c.cacheLookups.WithLabelValues(result).Inc()
}

// OnComplete records the end of a conversion.
func (c *Collector) OnComplete(_ context.Context, format, outcome string, d time.Duration) {
	if format == "" {
		format = "unknown"
	}
	c.conversions.WithLabelValues(format, outcome).Inc()
	c.duration.WithLabelValues(format).Observe(d.Seconds())
}

// Snapshot is the converter load read at scrape time.
type Snapshot struct {
	Capacity       int
	InFlight       int
	Waiting        int
	Rejected       uint64
	LiveWorkspaces int
}

// RegisterLoad exports engine slot occupancy and live workspaces as gauges.
// load is called once per metric on every scrape.
func RegisterLoad(reg prometheus.Registerer, load func() Snapshot) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "engines_in_flight",
			Help:      "Engine slots currently held.",
		}, func() float64 { return float64(load().InFlight) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "engines_capacity",
			Help:      "Maximum concurrent engine slots.",
		}, func() float64 { return float64(load().Capacity) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_waiting",
			Help:      "Jobs waiting for an engine slot.",
		}, func() float64 { return float64(load().Waiting) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admissions_rejected_total",
			Help:      "Admissions that gave up before getting a slot.",
		}, func() float64 { return float64(load().Rejected) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workspaces_live",
			Help:      "Job workspaces currently on disk.",
		}, func() float64 { return float64(load().LiveWorkspaces) }),
	)
}

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
