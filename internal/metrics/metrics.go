// Package metrics exposes Prometheus collectors for the console host.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the host's Prometheus collectors around one registry.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	pluginsMounted     prometheus.Gauge
	servicesRegistered prometheus.Gauge
	trackersOpen       prometheus.Gauge
	registryEvents     *prometheus.CounterVec
	providerLookups    *prometheus.CounterVec
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "plugboard",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plugboard",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"service", "method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "plugboard",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"service", "method", "path"}),

		pluginsMounted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "plugboard",
			Subsystem: "console",
			Name:      "plugins_mounted",
			Help:      "Number of console plugins currently mounted.",
		}),
		servicesRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "plugboard",
			Subsystem: "registry",
			Name:      "services_registered",
			Help:      "Number of services currently registered.",
		}),
		trackersOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "plugboard",
			Subsystem: "registry",
			Name:      "trackers_open",
			Help:      "Number of open service trackers.",
		}),
		registryEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plugboard",
			Subsystem: "registry",
			Name:      "events_total",
			Help:      "Total number of service registry events.",
		}, []string{"type"}),
		providerLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plugboard",
			Subsystem: "extension",
			Name:      "provider_lookups_total",
			Help:      "Total number of provider lookups by result.",
		}, []string{"point", "result"}),
	}

	m.registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.pluginsMounted,
		m.servicesRegistered,
		m.trackersOpen,
		m.registryEvents,
		m.providerLookups,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)

	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler serving the scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncrementInFlight bumps the in-flight HTTP request gauge.
func (m *Metrics) IncrementInFlight() { m.httpInFlight.Inc() }

// DecrementInFlight releases the in-flight HTTP request gauge.
func (m *Metrics) DecrementInFlight() { m.httpInFlight.Dec() }

// RecordHTTPRequest records one handled HTTP request.
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	m.httpRequests.WithLabelValues(service, method, path, status).Inc()
	m.httpDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// SetPluginsMounted records the number of mounted console plugins.
func (m *Metrics) SetPluginsMounted(n int) { m.pluginsMounted.Set(float64(n)) }

// SetServicesRegistered records the current service registry size.
func (m *Metrics) SetServicesRegistered(n int) { m.servicesRegistered.Set(float64(n)) }

// SetTrackersOpen records the number of open service trackers.
func (m *Metrics) SetTrackersOpen(n int) { m.trackersOpen.Set(float64(n)) }

// RecordRegistryEvent counts a service registry event by type.
func (m *Metrics) RecordRegistryEvent(eventType string) {
	m.registryEvents.WithLabelValues(eventType).Inc()
}

// RecordProviderLookup counts an extension provider lookup by result
// ("hit" or "miss").
func (m *Metrics) RecordProviderLookup(point, result string) {
	m.providerLookups.WithLabelValues(point, result).Inc()
}
