package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics records outcomes of payment gateway calls.
type GatewayMetrics struct {
	duration *prometheus.HistogramVec
	calls    *prometheus.CounterVec
}

// NewGatewayMetrics registers the gateway metrics on the provided registerer.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_gateway_duration_seconds",
		Help:    "Duration of payment gateway calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway", "operation"})
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_gateway_calls",
		Help: "Payment gateway calls by outcome.",
	}, []string{"gateway", "operation", "outcome"})
	reg.MustRegister(duration, calls)
	return &GatewayMetrics{
		duration: duration,
		calls:    calls,
	}
}

// ObserveCall records one gateway call with its duration and outcome.
func (g *GatewayMetrics) ObserveCall(gateway, operation, outcome string, duration time.Duration) {
	if g == nil || g.duration == nil {
		return
	}
	g.duration.WithLabelValues(gateway, operation).Observe(duration.Seconds())
	g.calls.WithLabelValues(gateway, operation, outcome).Inc()
}
