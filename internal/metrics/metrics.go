// Package metrics exposes Prometheus metrics for the delivery engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for mailfleet
type Metrics struct {
	CampaignsProcessedTotal prometheus.Counter
	CampaignsSentTotal      prometheus.Counter
	CampaignsFailedTotal    prometheus.Counter
	ABTestsStartedTotal     prometheus.Counter
	ABRolloutsTotal         *prometheus.CounterVec

	EmailsSentTotal   *prometheus.CounterVec
	EmailsFailedTotal *prometheus.CounterVec

	SendDurationSeconds prometheus.Histogram
	DueCampaigns        prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		CampaignsProcessedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailfleet_campaigns_processed_total",
			Help: "Total number of due campaigns picked up by the dispatcher",
		}),
		CampaignsSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailfleet_campaigns_sent_total",
			Help: "Total number of campaigns that completed a send",
		}),
		CampaignsFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailfleet_campaigns_failed_total",
			Help: "Total number of campaigns marked failed",
		}),
		ABTestsStartedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailfleet_ab_tests_started_total",
			Help: "Total number of A/B test phases started",
		}),
		ABRolloutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailfleet_ab_rollouts_total",
			Help: "Total number of completed winner rollouts",
		}, []string{"winner"}),
		EmailsSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailfleet_emails_sent_total",
			Help: "Total number of emails accepted by the smarthost",
		}, []string{"variant"}),
		EmailsFailedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailfleet_emails_failed_total",
			Help: "Total number of per-recipient send failures",
		}, []string{"variant"}),
		SendDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mailfleet_send_duration_seconds",
			Help:    "Duration of individual email submissions",
			Buckets: prometheus.DefBuckets,
		}),
		DueCampaigns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mailfleet_due_campaigns",
			Help: "Number of due campaigns found on the last dispatcher tick",
		}),
		registry: reg,
	}

	reg.MustRegister(
		m.CampaignsProcessedTotal,
		m.CampaignsSentTotal,
		m.CampaignsFailedTotal,
		m.ABTestsStartedTotal,
		m.ABRolloutsTotal,
		m.EmailsSentTotal,
		m.EmailsFailedTotal,
		m.SendDurationSeconds,
		m.DueCampaigns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns an http.Handler serving the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
