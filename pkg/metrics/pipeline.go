package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records webhook dispatch and notification delivery outcomes.
type PipelineMetrics struct {
	webhookEvents     *prometheus.CounterVec
	webhookDuration   *prometheus.HistogramVec
	notificationSends *prometheus.CounterVec
	outboxBacklog     prometheus.Gauge
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Processed gateway webhook events by type and outcome.",
	}, []string{"event_type", "outcome"})
	webhookDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_handle_duration_seconds",
		Help:    "Duration of webhook event handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	notificationSends := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_sends_total",
		Help: "Notification delivery attempts by template and outcome.",
	}, []string{"template", "outcome"})
	outboxBacklog := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_unpublished_events",
		Help: "Unpublished outbox events observed by the worker.",
	})
	reg.MustRegister(webhookEvents, webhookDuration, notificationSends, outboxBacklog)
	return &PipelineMetrics{
		webhookEvents:     webhookEvents,
		webhookDuration:   webhookDuration,
		notificationSends: notificationSends,
		outboxBacklog:     outboxBacklog,
	}
}

// IncWebhookEvent counts one handled webhook event.
func (p *PipelineMetrics) IncWebhookEvent(eventType, outcome string) {
	if p == nil || p.webhookEvents == nil {
		return
	}
	p.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveWebhookDuration records how long one event took to handle.
func (p *PipelineMetrics) ObserveWebhookDuration(eventType string, duration time.Duration) {
	if p == nil || p.webhookDuration == nil {
		return
	}
	p.webhookDuration.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}

// IncNotificationSend counts one notification delivery attempt.
func (p *PipelineMetrics) IncNotificationSend(template, outcome string) {
	if p == nil || p.notificationSends == nil {
		return
	}
	p.notificationSends.WithLabelValues(normalizeLabel(template), normalizeLabel(outcome)).Inc()
}

// SetOutboxBacklog reports the unpublished outbox depth.
func (p *PipelineMetrics) SetOutboxBacklog(n int) {
	if p == nil || p.outboxBacklog == nil {
		return
	}
	p.outboxBacklog.Set(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
