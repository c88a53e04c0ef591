package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the road network planner
type Registry struct {
	// Generation Metrics
	GenerationDuration  *prometheus.HistogramVec
	GraphNodes          prometheus.Gauge
	GraphEdges          prometheus.Gauge
	GraphComponents     prometheus.Gauge
	MSTEdges            prometheus.Gauge
	AugmentEdgesAdded   prometheus.Counter
	AugmentCrossRejects prometheus.Counter

	// Query Metrics
	PathQueriesTotal  *prometheus.CounterVec
	PathQueryDuration prometheus.Histogram
	PathNodesSettled  prometheus.Histogram

	// HTTP Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}

	r.initGenerationMetrics()
	r.initQueryMetrics()
	r.initHTTPMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler exposes the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Registry) initGenerationMetrics() {
	f := promauto.With(r.registry)

	r.GenerationDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roadnet_generation_step_duration_seconds",
			Help:    "Duration of each graph generation step in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"step"},
	)
	r.GraphNodes = f.NewGauge(prometheus.GaugeOpts{
		Name: "roadnet_graph_nodes",
		Help: "Number of nodes in the current road network",
	})
	r.GraphEdges = f.NewGauge(prometheus.GaugeOpts{
		Name: "roadnet_graph_edges",
		Help: "Number of undirected edges in the current road network",
	})
	r.GraphComponents = f.NewGauge(prometheus.GaugeOpts{
		Name: "roadnet_graph_components",
		Help: "Connected components left after the spanning tree pass",
	})
	r.MSTEdges = f.NewGauge(prometheus.GaugeOpts{
		Name: "roadnet_mst_edges",
		Help: "Edges accepted by the spanning tree pass",
	})
	r.AugmentEdgesAdded = f.NewCounter(prometheus.CounterOpts{
		Name: "roadnet_augment_edges_added_total",
		Help: "Edges added by augmentation passes",
	})
	r.AugmentCrossRejects = f.NewCounter(prometheus.CounterOpts{
		Name: "roadnet_augment_crossing_rejects_total",
		Help: "Augmentation candidates rejected because they crossed an existing edge",
	})
}

func (r *Registry) initQueryMetrics() {
	f := promauto.With(r.registry)

	r.PathQueriesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadnet_path_queries_total",
			Help: "Total number of shortest path queries",
		},
		[]string{"status"},
	)
	r.PathQueryDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "roadnet_path_query_duration_seconds",
		Help:    "Shortest path query duration in seconds",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1.0},
	})
	r.PathNodesSettled = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "roadnet_path_nodes_settled",
		Help:    "Number of nodes settled per shortest path query",
		Buckets: []float64{10, 100, 1000, 10000, 100000},
	})
}

func (r *Registry) initHTTPMetrics() {
	f := promauto.With(r.registry)

	r.HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadnet_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	r.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roadnet_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
}

// RecordGenerationStep records how long one generation step took.
// All Record methods are no-ops on a nil registry.
func (r *Registry) RecordGenerationStep(step string, duration time.Duration) {
	if r == nil {
		return
	}
	r.GenerationDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordGraph publishes the shape of a freshly generated graph
func (r *Registry) RecordGraph(nodes, edges, components, mstEdges int) {
	if r == nil {
		return
	}
	r.GraphNodes.Set(float64(nodes))
	r.GraphEdges.Set(float64(edges))
	r.GraphComponents.Set(float64(components))
	r.MSTEdges.Set(float64(mstEdges))
}

// RecordAugmentation records the outcome of one augmentation pass
func (r *Registry) RecordAugmentation(added, crossingRejects int) {
	if r == nil {
		return
	}
	r.AugmentEdgesAdded.Add(float64(added))
	r.AugmentCrossRejects.Add(float64(crossingRejects))
}

// RecordPathQuery records a shortest path query. status is one of
// "found", "no_path" or "invalid".
func (r *Registry) RecordPathQuery(status string, duration time.Duration, settled int) {
	if r == nil {
		return
	}
	r.PathQueriesTotal.WithLabelValues(status).Inc()
	r.PathQueryDuration.Observe(duration.Seconds())
	r.PathNodesSettled.Observe(float64(settled))
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
