// Package metrics exports extraction activity as Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgallion1/patentalloy/internal/extract"
)

const namespace = "patentalloy"

// Reporter is an extract.Reporter backed by its own registry. It is safe to
// share across concurrent runs.
type Reporter struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	tierSelected *prometheus.CounterVec
	tierFailures *prometheus.CounterVec
	loadFailures *prometheus.CounterVec
	loadDuration prometheus.Histogram
	genDuration  *prometheus.HistogramVec
	chunks       *prometheus.CounterVec
	jobsInFlight prometheus.Gauge
	queuedJobs   prometheus.Gauge
}

var _ extract.Reporter = (*Reporter)(nil)

func New() *Reporter {
	r := &Reporter{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_total",
			Help: "Extraction runs by outcome.",
		}, []string{"outcome"}),
		tierSelected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tier_selected_total",
			Help: "Models loaded, by acceleration tier.",
		}, []string{"tier"}),
		tierFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tier_failures_total",
			Help: "Acceleration tiers that failed to initialize.",
		}, []string{"tier"}),
		loadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "model_load_failures_total",
			Help: "Model loads that failed: every tier exhausted, or an error before any tier ran.",
		}, []string{"reason"}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "model_load_duration_seconds",
			Help:    "Time to bring a model up, including fallback attempts.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		}),
		genDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "generation_duration_seconds",
			Help:    "Generation latency by operation.",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"op"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "chunks_total",
			Help: "Chunks processed by result.",
		}, []string{"result"}),
		jobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "jobs_in_flight",
			Help: "Async jobs currently being processed.",
		}),
		queuedJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "jobs_queued",
			Help: "Async jobs waiting for a worker.",
		}),
	}
	r.registry.MustRegister(
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{Namespace: namespace}),
		prometheus.NewGoCollector(),
		r.runs, r.tierSelected, r.tierFailures, r.loadFailures, r.loadDuration,
		r.genDuration, r.chunks, r.jobsInFlight, r.queuedJobs,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Reporter) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Reporter) LoadStart(string) {}

func (r *Reporter) TierFailed(tier extract.Tier, _ error) {
	r.tierFailures.WithLabelValues(tier.Name).Inc()
}

// LoadEnd counts the final tier as failed only when it was actually tried.
func (r *Reporter) LoadEnd(tier extract.Tier, elapsed time.Duration, err error) {
	if err != nil {
		var fallback *extract.FallbackError
		if errors.As(err, &fallback) {
			r.tierFailures.WithLabelValues(fallback.Tier.Name).Inc()
			r.loadFailures.WithLabelValues("tiers_exhausted").Inc()
			return
		}
		r.loadFailures.WithLabelValues("error").Inc()
		return
	}
	r.tierSelected.WithLabelValues(tier.Name).Inc()
	r.loadDuration.Observe(elapsed.Seconds())
}

func (r *Reporter) ChunkStart(int, int, int) {}

func (r *Reporter) ChunkEnd(_, _ int, elapsed time.Duration, output string, err error) {
	switch {
	case err != nil:
		r.chunks.WithLabelValues("error").Inc()
		return
	case len(extract.UsableResults([]string{output})) == 0:
		r.chunks.WithLabelValues("empty").Inc()
	default:
		r.chunks.WithLabelValues("found").Inc()
	}
	r.genDuration.WithLabelValues(extract.OpChunk).Observe(elapsed.Seconds())
}

func (r *Reporter) MergeStart(int) {}

func (r *Reporter) MergeEnd(elapsed time.Duration, _ string, err error) {
	if err == nil {
		r.genDuration.WithLabelValues(extract.OpMerge).Observe(elapsed.Seconds())
	}
}

func (r *Reporter) RunEnd(_ time.Duration, err error) {
	if err != nil {
		r.runs.WithLabelValues("failed").Inc()
		return
	}
	r.runs.WithLabelValues("ok").Inc()
}

// JobStarted and JobFinished track the async job pool.
func (r *Reporter) JobStarted() { r.jobsInFlight.Inc() }

func (r *Reporter) JobFinished() { r.jobsInFlight.Dec() }

// SetQueued records the current queue depth.
func (r *Reporter) SetQueued(n int) { r.queuedJobs.Set(float64(n)) }
