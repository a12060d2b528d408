// Package telemetry implements the observability hooks with Prometheus
// metrics and exposes them over HTTP.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/cutout/pkg/observability"
)

const namespace = "cutout"

// Metrics holds the collectors. It implements the pipeline, cache and HTTP
// hook interfaces.
type Metrics struct {
	reg *prometheus.Registry

	samples      *prometheus.HistogramVec
	holes        prometheus.Histogram
	applies      *prometheus.HistogramVec
	keypoints    prometheus.Counter
	jobs         *prometheus.CounterVec
	jobDuration  prometheus.Histogram
	cacheEvents  *prometheus.CounterVec
	cacheBytes   *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, along with the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		reg: reg,
		samples: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sample_duration_seconds",
			Help:      "Time spent sampling holes.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"result"}),
		holes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "holes_per_sample",
			Help:      "Number of holes drawn per invocation.",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		}),
		applies: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "apply_duration_seconds",
			Help:      "Time spent applying holes to a target.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}, []string{"target", "result"}),
		keypoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keypoints_dropped_total",
			Help:      "Keypoints removed because they fell inside a hole.",
		}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Pipeline jobs by result.",
		}, []string{"result"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "End-to-end duration of a pipeline job.",
			Buckets:   prometheus.DefBuckets,
		}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by key type and outcome.",
		}, []string{"key_type", "outcome"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache.",
		}, []string{"key_type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.samples, m.holes, m.applies, m.keypoints, m.jobs, m.jobDuration,
		m.cacheEvents, m.cacheBytes, m.httpRequests, m.httpDuration)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Install registers m as the global pipeline, cache and HTTP hooks.
func (m *Metrics) Install() {
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Expose serves /metrics on addr until ctx is cancelled.
func (m *Metrics) Expose(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// OnSample implements observability.PipelineHooks.
func (m *Metrics) OnSample(_ context.Context, holes int, d time.Duration, err error) {
	m.samples.WithLabelValues(result(err)).Observe(d.Seconds())
	if err == nil {
		m.holes.Observe(float64(holes))
	}
}

// OnApply implements observability.PipelineHooks.
func (m *Metrics) OnApply(_ context.Context, target string, d time.Duration, err error) {
	m.applies.WithLabelValues(target, result(err)).Observe(d.Seconds())
}

// OnKeypointsDropped implements observability.PipelineHooks.
func (m *Metrics) OnKeypointsDropped(_ context.Context, dropped int) {
	m.keypoints.Add(float64(dropped))
}

// OnJobComplete implements observability.PipelineHooks.
func (m *Metrics) OnJobComplete(_ context.Context, d time.Duration, err error) {
	m.jobs.WithLabelValues(result(err)).Inc()
	m.jobDuration.Observe(d.Seconds())
}

// OnCacheHit implements observability.CacheHooks.
func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

// OnCacheMiss implements observability.CacheHooks.
func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

// OnCacheSet implements observability.CacheHooks.
func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

// OnRequest implements observability.HTTPHooks. Requests are counted on
// response, so this only exists to satisfy the interface.
func (m *Metrics) OnRequest(context.Context, string, string) {}

// OnResponse implements observability.HTTPHooks.
func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)
