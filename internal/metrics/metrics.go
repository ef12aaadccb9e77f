// Package metrics exposes gateway counters on a private registry so tests can
// run collectors side by side.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	Requests         *prometheus.CounterVec
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	OfflineResponses prometheus.Counter
	SyncOps          *prometheus.CounterVec
	QueueDepth       prometheus.Gauge
}

func New() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Collector{
		registry: registry,
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "joyas_gateway_requests_total",
			Help: "Intercepted requests by routing strategy.",
		}, []string{"strategy"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "joyas_gateway_cache_hits_total",
			Help: "Static requests served from the versioned cache.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "joyas_gateway_cache_misses_total",
			Help: "Static requests that had to go to the network.",
		}),
		OfflineResponses: factory.NewCounter(prometheus.CounterOpts{
			Name: "joyas_gateway_offline_responses_total",
			Help: "Synthesized offline responses returned to the app.",
		}),
		SyncOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "joyas_sync_operations_total",
			Help: "Queued operation replay attempts by result.",
		}, []string{"result"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "joyas_queue_depth",
			Help: "Operations currently pending in the offline queue.",
		}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
