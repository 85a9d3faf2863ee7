// internal/metrics/collector.go
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pumpbot"

// Operation results used as label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// MetricType names a registered metric.
type MetricType string

const (
	HTTPRequestsType     MetricType = "http_requests"
	HTTPDurationType     MetricType = "http_duration"
	LaunchOperationsType MetricType = "launch_operations"
	LiveSubscribersType  MetricType = "live_subscribers"
	MarketRefreshType    MetricType = "market_refresh"
)

// Collector owns the service metrics and the registry they are exposed from.
// Each collector has its own registry so tests can create as many as they need.
type Collector struct {
	registry *prometheus.Registry
	metrics  sync.Map

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	launchOperations *prometheus.CounterVec
	liveSubscribers  prometheus.Gauge
	marketRefresh    *prometheus.CounterVec
}

// NewCollector registers all service metrics plus the Go runtime and process
// collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"method", "route"},
		),
		launchOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "launch_operations_total",
				Help:      "Launch pipeline operations by outcome",
			},
			[]string{"operation", "result"},
		),
		liveSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "live_subscribers",
				Help:      "Connected live channel clients",
			},
		),
		marketRefresh: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "market_refresh_total",
				Help:      "Market data refreshes by outcome",
			},
			[]string{"result"},
		),
	}

	metricsMap := map[MetricType]prometheus.Collector{
		HTTPRequestsType:     c.httpRequests,
		HTTPDurationType:     c.httpDuration,
		LaunchOperationsType: c.launchOperations,
		LiveSubscribersType:  c.liveSubscribers,
		MarketRefreshType:    c.marketRefresh,
	}
	for metricType, metric := range metricsMap {
		c.metrics.Store(metricType, metric)
		c.registry.MustRegister(metric)
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveHTTP records one served request. route is the matched route pattern,
// not the raw path.
func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordLaunch counts a launch pipeline operation.
func (c *Collector) RecordLaunch(operation string, success bool) {
	result := ResultSuccess
	if !success {
		result = ResultFailure
	}
	c.launchOperations.WithLabelValues(operation, result).Inc()
}

// SetLiveSubscribers updates the live client gauge.
func (c *Collector) SetLiveSubscribers(n int) {
	c.liveSubscribers.Set(float64(n))
}

// RecordMarketRefresh counts one token refresh.
func (c *Collector) RecordMarketRefresh(result string) {
	c.marketRefresh.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Reset clears all service metrics.
func (c *Collector) Reset() {
	c.metrics.Range(func(_, value interface{}) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		case prometheus.Gauge:
			m.Set(0)
		}
		return true
	})
}
