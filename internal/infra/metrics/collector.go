package metrics

import (
	"net/http"
	"time"

	configs "go_deproxy/internal/infra/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Inbound outcomes recorded per endpoint.
const (
	OutcomeMatched      = "matched"
	OutcomeDefault      = "default"
	OutcomeMalformed    = "malformed"
	OutcomeTooLong      = "too_long"
	OutcomeTooLarge     = "too_large"
	OutcomeTimeout      = "timeout"
	OutcomeHandlerPanic = "handler_panic"
)

// Outbound results recorded by MakeRequest.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Collector owns the prometheus metrics of one Deproxy. All methods are no-ops
// on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	inbound         *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec
	outbound        *prometheus.CounterVec
	inFlight        prometheus.Gauge
}

// NewCollector registers the deproxy metrics on registry, or on a fresh
// registry when nil.
func NewCollector(cfg *configs.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	namespace := "deproxy"
	if cfg != nil && cfg.Namespace != "" {
		namespace = cfg.Namespace
	}

	c := &Collector{
		registry: registry,
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_requests_total",
			Help:      "Requests received by endpoints, by outcome.",
		}, []string{"endpoint", "outcome"}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Time spent in handler functions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		outbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_requests_total",
			Help:      "Requests issued through MakeRequest, by result.",
		}, []string{"result"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chains_in_flight",
			Help:      "Message chains currently registered.",
		}),
	}

	registry.MustRegister(c.inbound, c.handlerDuration, c.outbound, c.inFlight)
	return c
}

func (c *Collector) ObserveInbound(endpoint, outcome string) {
	if c == nil {
		return
	}
	c.inbound.WithLabelValues(endpoint, outcome).Inc()
}

func (c *Collector) ObserveHandler(endpoint string, d time.Duration) {
	if c == nil {
		return
	}
	c.handlerDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (c *Collector) ObserveOutbound(result string) {
	if c == nil {
		return
	}
	c.outbound.WithLabelValues(result).Inc()
}

func (c *Collector) ChainStarted() {
	if c == nil {
		return
	}
	c.inFlight.Inc()
}

func (c *Collector) ChainFinished() {
	if c == nil {
		return
	}
	c.inFlight.Dec()
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler exposes the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
