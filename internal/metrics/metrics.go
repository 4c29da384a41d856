// Package metrics exposes Prometheus metrics for conversions, PDF exports
// and HTTP requests on a private registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	Namespace           = "docx2html"
	SubsystemConversion = "conversion"
	SubsystemExport     = "export"
	SubsystemHTTP       = "http"

	VersionLabel = "version"
)

// Metrics records pipeline and server activity. A nil *metrics is a valid
// no-op implementation.
type Metrics interface {
	GetRegistry() *prometheus.Registry

	ObserveConversion(format, status string, elapsed float64)
	AddNormalized(images, codeBlocks, merged, tables int)
	ObserveExport(format, status string, elapsed float64)
	ObserveHTTPRequest(route, method, statusCode string, elapsed float64)
}

type metrics struct {
	registry *prometheus.Registry

	startTime prometheus.Gauge
	info      prometheus.Gauge

	conversionTime *prometheus.HistogramVec
	normalized     *prometheus.CounterVec
	exportTime     *prometheus.HistogramVec
	httpTime       *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with a new registry.
func NewMetrics(version string) Metrics {
	m := &metrics{registry: prometheus.NewRegistry()}

	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: Namespace}))
	m.registry.MustRegister(collectors.NewGoCollector())

	m.startTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "start_timestamp_seconds",
		Help:      "The time the process started.",
	})
	m.startTime.SetToCurrentTime()
	m.registry.MustRegister(m.startTime)

	m.info = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   Namespace,
		Name:        "info",
		Help:        "Build information.",
		ConstLabels: prometheus.Labels{VersionLabel: version},
	})
	m.info.Set(1)
	m.registry.MustRegister(m.info)

	m.conversionTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: SubsystemConversion,
		Name:      "duration_seconds",
		Help:      "Time to convert an uploaded document to HTML.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"format", "status"})
	m.registry.MustRegister(m.conversionTime)

	m.normalized = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemConversion,
		Name:      "normalized_total",
		Help:      "Blocks touched by normalization, by kind.",
	}, []string{"kind"})
	m.registry.MustRegister(m.normalized)

	m.exportTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: SubsystemExport,
		Name:      "duration_seconds",
		Help:      "Time to export a document.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"format", "status"})
	m.registry.MustRegister(m.exportTime)

	m.httpTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: SubsystemHTTP,
		Name:      "request_duration_seconds",
		Help:      "Time to serve an HTTP request.",
	}, []string{"route", "method", "status_code"})
	m.registry.MustRegister(m.httpTime)

	return m
}

func (m *metrics) GetRegistry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *metrics) ObserveConversion(format, status string, elapsed float64) {
	if m != nil {
		m.conversionTime.With(prometheus.Labels{"format": format, "status": status}).Observe(elapsed)
	}
}

func (m *metrics) AddNormalized(images, codeBlocks, merged, tables int) {
	if m == nil {
		return
	}
	m.normalized.WithLabelValues("image").Add(float64(images))
	m.normalized.WithLabelValues("code_block").Add(float64(codeBlocks))
	m.normalized.WithLabelValues("merged").Add(float64(merged))
	m.normalized.WithLabelValues("table").Add(float64(tables))
}

func (m *metrics) ObserveExport(format, status string, elapsed float64) {
	if m != nil {
		m.exportTime.With(prometheus.Labels{"format": format, "status": status}).Observe(elapsed)
	}
}

func (m *metrics) ObserveHTTPRequest(route, method, statusCode string, elapsed float64) {
	if m != nil {
		m.httpTime.With(prometheus.Labels{"route": route, "method": method, "status_code": statusCode}).Observe(elapsed)
	}
}
