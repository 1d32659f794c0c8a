package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for exports, queries and the cache.
type Metrics struct {
	Exports      *prometheus.CounterVec // labels: kind={records,plot,query}, outcome={success,error}
	ExportedRows prometheus.Counter
	ExportBytes  prometheus.Histogram
	ToolCalls    *prometheus.CounterVec // labels: tool, outcome
	Cache        *prometheus.CounterVec // labels: result={hit,miss}
	QueryLatency prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which suits tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "o3as_export",
			Name:      "exports_total",
			Help:      "CSV exports by kind and outcome.",
		}, []string{"kind", "outcome"}),
		ExportedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "o3as_export",
			Name:      "rows_total",
			Help:      "Data rows written to CSV exports.",
		}),
		ExportBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "o3as_export",
			Name:      "export_size_bytes",
			Help:      "Size of generated CSV documents.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "o3as_export",
			Name:      "tool_calls_total",
			Help:      "MCP tool invocations by tool and outcome.",
		}, []string{"tool", "outcome"}),
		Cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "o3as_export",
			Name:      "cache_lookups_total",
			Help:      "Export cache lookups by result.",
		}, []string{"result"}),
		QueryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "o3as_export",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Exports,
			m.ExportedRows,
			m.ExportBytes,
			m.ToolCalls,
			m.Cache,
			m.QueryLatency,
		)
	}

	return m
}

// ObserveExport records a finished export of kind.
func (m *Metrics) ObserveExport(kind string, rows int, csv string, err error) {
	if err != nil {
		m.Exports.WithLabelValues(kind, "error").Inc()
		return
	}
	m.Exports.WithLabelValues(kind, "success").Inc()
	m.ExportedRows.Add(float64(rows))
	m.ExportBytes.Observe(float64(len(csv)))
}

// ObserveCache counts a cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if hit {
		m.Cache.WithLabelValues("hit").Inc()
		return
	}
	m.Cache.WithLabelValues("miss").Inc()
}
