package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"go-dashboard-hub/internal/infrastructure/hub"
)

const (
	resultDelivered = "delivered"
	resultDropped   = "dropped"
)

// HubMetrics records registry and delivery outcomes. It implements
// hub.Observer.
type HubMetrics struct {
	ActiveConnections *prometheus.GaugeVec
	ConnectionsTotal  *prometheus.CounterVec
	Subscriptions     prometheus.Gauge
	Deliveries        *prometheus.CounterVec
}

var _ hub.Observer = (*HubMetrics)(nil)

// NewHubMetrics creates and registers hub metrics on the given registry.
func NewHubMetrics(reg prometheus.Registerer) *HubMetrics {
	m := &HubMetrics{
		ActiveConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "active_connections",
			Help:      "Number of registered connections by transport.",
		}, []string{"type"}),
		ConnectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "connections_total",
			Help:      "Total number of connections registered by transport.",
		}, []string{"type"}),
		Subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "subscriptions",
			Help:      "Number of connection-topic memberships.",
		}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Per-connection delivery attempts by outcome and message type.",
		}, []string{"result", "type"}),
	}

	reg.MustRegister(m.ActiveConnections, m.ConnectionsTotal, m.Subscriptions, m.Deliveries)
	return m
}

func (m *HubMetrics) ConnectionOpened(connType string) {
	m.ActiveConnections.WithLabelValues(connType).Inc()
	m.ConnectionsTotal.WithLabelValues(connType).Inc()
}

func (m *HubMetrics) ConnectionClosed(connType string) {
	m.ActiveConnections.WithLabelValues(connType).Dec()
}

func (m *HubMetrics) SubscriptionsChanged(total int) {
	m.Subscriptions.Set(float64(total))
}

func (m *HubMetrics) MessageDelivered(msgType string) {
	m.Deliveries.WithLabelValues(resultDelivered, msgType).Inc()
}

func (m *HubMetrics) MessageDropped(msgType string) {
	m.Deliveries.WithLabelValues(resultDropped, msgType).Inc()
}
