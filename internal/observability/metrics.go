package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_watch"

// Metrics holds the Prometheus collectors of the weather-api service.
type Metrics struct {
	AlertsCreated     prometheus.Counter
	AlertsThrottled   prometheus.Counter
	WeatherEvents     prometheus.Counter
	ShipmentsDelayed  prometheus.Counter
	ETAAdjustments    prometheus.Counter
	ActiveAlerts      prometheus.Gauge
	ShipmentUpdates   *prometheus.CounterVec // labels: outcome={applied,ignored,invalid}
	ImpactsPublished  prometheus.Counter
	ImpactPublishErrs prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		AlertsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "Weather alerts recorded by operators.",
		}),
		AlertsThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_throttled_total",
			Help:      "Alert creations rejected by the per-metro rate limit.",
		}),
		WeatherEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_events_total",
			Help:      "Weather events linking an alert to an affected shipment.",
		}),
		ShipmentsDelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipments_delayed_total",
			Help:      "Shipments moved to delayed by alert processing.",
		}),
		ETAAdjustments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eta_adjustments_total",
			Help:      "Adjusted ETAs applied to shipments.",
		}),
		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_alerts",
			Help:      "Weather alerts currently active.",
		}),
		ShipmentUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipment_updates_total",
			Help:      "Carrier scan updates by outcome.",
		}, []string{"outcome"}),
		ImpactsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "impacts_published_total",
			Help:      "Weather impact messages published to Kafka.",
		}),
		ImpactPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "impact_publish_errors_total",
			Help:      "Weather impact messages that failed to publish.",
		}),
	}
}

// NewMetrics creates the collectors and registers them with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.AlertsCreated,
		m.AlertsThrottled,
		m.WeatherEvents,
		m.ShipmentsDelayed,
		m.ETAAdjustments,
		m.ActiveAlerts,
		m.ShipmentUpdates,
		m.ImpactsPublished,
		m.ImpactPublishErrs,
	)
	return m
}

// NewMetricsForTesting creates unregistered collectors so tests can build as
// many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// The recorders below accept a nil *Metrics so services built without
// WithMetrics skip instrumentation.

func (m *Metrics) AlertCreated(events, delayed int) {
	if m == nil {
		return
	}
	m.AlertsCreated.Inc()
	m.WeatherEvents.Add(float64(events))
	m.ShipmentsDelayed.Add(float64(delayed))
}

func (m *Metrics) AlertThrottled() {
	if m == nil {
		return
	}
	m.AlertsThrottled.Inc()
}

func (m *Metrics) ETAAdjusted() {
	if m == nil {
		return
	}
	m.ETAAdjustments.Inc()
}

func (m *Metrics) SetActiveAlerts(n int) {
	if m == nil {
		return
	}
	m.ActiveAlerts.Set(float64(n))
}

// ShipmentUpdate counts a carrier scan by outcome: applied, ignored or invalid.
func (m *Metrics) ShipmentUpdate(outcome string) {
	if m == nil {
		return
	}
	m.ShipmentUpdates.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ImpactPublished() {
	if m == nil {
		return
	}
	m.ImpactsPublished.Inc()
}

func (m *Metrics) ImpactPublishFailed() {
	if m == nil {
		return
	}
	m.ImpactPublishErrs.Inc()
}
