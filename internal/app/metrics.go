package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "stagegraph"

// metrics are the counters exposed on /metrics.
type metrics struct {
	renders        *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	graphNodes     prometheus.Gauge
	graphEdges     prometheus.Gauge
	mutations      *prometheus.CounterVec
	reloads        prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "renders_total",
			Help:      "Diagram renders by mode and outcome.",
		}, []string{"mode", "outcome"}),
		renderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent loading and laying out a pipeline.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"mode"}),
		graphNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "graph_nodes",
			Help:      "Nodes in the last rendered diagram.",
		}),
		graphEdges: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "graph_edges",
			Help:      "Edges in the last rendered diagram.",
		}),
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tree_mutations_total",
			Help:      "Tree mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		reloads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "watch_reloads_total",
			Help:      "Re-renders triggered by file changes.",
		}),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
