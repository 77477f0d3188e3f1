// Package metrics owns the Prometheus registry and the collectors the
// dashboard, job runner and log filter report to.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "howis"

// Metrics bundles the collectors. The zero value is not usable; call New.
type Metrics struct {
	registry *prometheus.Registry

	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	redactions  prometheus.Counter
	httpReqs    *prometheus.CounterVec
}

// New creates a private registry with Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Job executions by job name and status.",
		}, []string{"job", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Job execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		redactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logging",
			Name:      "redactions_total",
			Help:      "Substrings replaced by the redaction filter.",
		}),
		httpReqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
	}
	reg.MustRegister(m.jobRuns, m.jobDuration, m.redactions, m.httpReqs)
	return m
}

// ObserveJob records one job execution.
func (m *Metrics) ObserveJob(job, status string, d time.Duration) {
	m.jobRuns.WithLabelValues(job, status).Inc()
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

// AddRedactions counts redacted substrings.
func (m *Metrics) AddRedactions(n int) {
	m.redactions.Add(float64(n))
}

// ObserveRequest records one HTTP response.
func (m *Metrics) ObserveRequest(route, method string, code int) {
	m.httpReqs.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
}

// Registry exposes the underlying registry (tests, extra collectors).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
