// Package metrics exposes Prometheus collectors for the QA pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline stages timed by StageDuration.
const (
	StageLoad     = "load"
	StageChunk    = "chunk"
	StageIndex    = "index"
	StageSearch   = "search"
	StageGenerate = "generate"
)

// Metrics holds the service collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	IngestionsTotal     *prometheus.CounterVec
	IngestedChunksTotal prometheus.Counter
	QueriesTotal        *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	IndexEntries        prometheus.Gauge
	HTTPRequestsTotal   *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		IngestionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kbqa_ingestions_total",
				Help: "Document uploads processed, by outcome",
			},
			[]string{"status"},
		),
		IngestedChunksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kbqa_ingested_chunks_total",
				Help: "Chunks added to the vector index",
			},
		),
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kbqa_queries_total",
				Help: "Questions processed, by outcome",
			},
			[]string{"status"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kbqa_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		IndexEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kbqa_index_entries",
				Help: "Entries in the vector index after the last ingestion",
			},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kbqa_http_requests_total",
				Help: "HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),
	}
}

// ObserveStage records the time elapsed since start for stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IngestSucceeded(chunks, entries int) {
	if m == nil {
		return
	}
	m.IngestionsTotal.WithLabelValues("success").Inc()
	m.IngestedChunksTotal.Add(float64(chunks))
	m.IndexEntries.Set(float64(entries))
}

func (m *Metrics) IngestFailed(reason string) {
	if m == nil {
		return
	}
	m.IngestionsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) Query(status string) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) HTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
