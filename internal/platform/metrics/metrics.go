package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the process-wide registry domain metrics register against.
type Registry struct {
	*prometheus.Registry
	HTTPRequests *prometheus.CounterVec
}

// New creates a registry with Go runtime and process collectors attached.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clockgate_http_requests_total",
		Help: "HTTP requests served, by route pattern and status code",
	}, []string{"route", "status"})
	reg.MustRegister(httpRequests)
	return &Registry{Registry: reg, HTTPRequests: httpRequests}
}

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{Registry: r.Registry})
}
