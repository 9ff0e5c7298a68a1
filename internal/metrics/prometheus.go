package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kiosk_sleep"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	transitions      *prom.CounterVec
	platformFailures *prom.CounterVec
	gestures         *prom.CounterVec
	publishFailures  *prom.CounterVec
	asleep           prom.Gauge
}

// NewPrometheusRecorder constructs and registers the scheduler metrics on reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	pr := &PrometheusRecorder{
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Screen sleep/wake transitions by resulting state and reason",
		}, []string{"state", "reason"}),
		platformFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "platform_failures_total",
			Help:      "Failed display or alarm calls by operation",
		}, []string{"op"}),
		gestures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "gestures_total",
			Help:      "Recognized settings gestures by input source",
		}, []string{"source"}),
		publishFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Failed MQTT publishes by message kind",
		}, []string{"kind"}),
		asleep: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "asleep",
			Help:      "1 while the screen is held asleep by the schedule",
		}),
	}
	reg.MustRegister(pr.transitions, pr.platformFailures, pr.gestures, pr.publishFailures, pr.asleep)
	return pr
}

func (p *PrometheusRecorder) IncTransition(state, reason string) {
	p.transitions.WithLabelValues(state, reason).Inc()
}

func (p *PrometheusRecorder) IncPlatformFailure(op string) {
	p.platformFailures.WithLabelValues(op).Inc()
}

func (p *PrometheusRecorder) IncGesture(source string) {
	p.gestures.WithLabelValues(source).Inc()
}

func (p *PrometheusRecorder) IncPublishFailure(kind string) {
	p.publishFailures.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) SetAsleep(asleep bool) {
	if asleep {
		p.asleep.Set(1)
		return
	}
	p.asleep.Set(0)
}

// HTTPHandler returns an http.Handler that serves metrics from g.
func HTTPHandler(g prom.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
