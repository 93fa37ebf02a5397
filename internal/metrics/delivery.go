package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery records pipeline and webhook outcomes. It satisfies both
// pipeline.Metrics and notify.Metrics.
type Delivery struct {
	results          *prometheus.CounterVec
	providerDuration prometheus.Histogram
	webhooks         *prometheus.CounterVec
}

// NewDelivery creates the delivery collectors and registers them with reg.
func NewDelivery(reg prometheus.Registerer) *Delivery {
	d := &Delivery{
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delivery_results_total",
			Help: "Delivery attempts by result",
		}, []string{"result"}),
		providerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "delivery_provider_duration_seconds",
			Help:    "Duration of email provider send calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Webhook notifications by outcome",
		}, []string{"outcome"}),
	}
	reg.MustRegister(d.results, d.providerDuration, d.webhooks)
	return d
}

// ObserveResult counts a pipeline result.
func (d *Delivery) ObserveResult(kind string) {
	d.results.WithLabelValues(kind).Inc()
}

// ObserveProviderDuration records one provider call.
func (d *Delivery) ObserveProviderDuration(dur time.Duration) {
	d.providerDuration.Observe(dur.Seconds())
}

// ObserveWebhook counts a webhook outcome.
func (d *Delivery) ObserveWebhook(outcome string) {
	d.webhooks.WithLabelValues(outcome).Inc()
}
