package minimqtt

import (
	"strconv"
	"time"
)

// MetricLabels represents key-value pairs for metric labels.
type MetricLabels map[string]string

// Metrics defines the interface for collecting client metrics.
type Metrics interface {
	Counter(name string, labels MetricLabels) Counter
	Gauge(name string, labels MetricLabels) Gauge
	Histogram(name string, labels MetricLabels) Histogram
}

// Counter is a monotonically increasing counter.
type Counter interface {
	Inc()
	Add(delta float64)
	Value() float64
}

// Gauge is a metric that can go up and down.
type Gauge interface {
	Set(value float64)
	Inc()
	Dec()
	Value() float64
}

// Histogram tracks the distribution of values.
type Histogram interface {
	Observe(value float64)
	ObserveDuration(d time.Duration)
	Count() uint64
	Sum() float64
}

// NoOpMetrics is a no-op implementation of Metrics. It is the client default.
type NoOpMetrics struct{}

func (n *NoOpMetrics) Counter(_ string, _ MetricLabels) Counter     { return noOpMetric{} }
func (n *NoOpMetrics) Gauge(_ string, _ MetricLabels) Gauge         { return noOpMetric{} }
func (n *NoOpMetrics) Histogram(_ string, _ MetricLabels) Histogram { return noOpMetric{} }

type noOpMetric struct{}

func (noOpMetric) Inc()                            {}
func (noOpMetric) Dec()                            {}
func (noOpMetric) Add(_ float64)                   {}
func (noOpMetric) Set(_ float64)                   {}
func (noOpMetric) Value() float64                  { return 0 }
func (noOpMetric) Observe(_ float64)               {}
func (noOpMetric) ObserveDuration(_ time.Duration) {}
func (noOpMetric) Count() uint64                   { return 0 }
func (noOpMetric) Sum() float64                    { return 0 }

// Standard metric names for the client.
const (
	MetricConnected         = "mqtt_client_connected"
	MetricConnectsTotal     = "mqtt_client_connects_total"
	MetricReconnectAttempts = "mqtt_client_reconnect_attempts_total"
	MetricPacketsSent       = "mqtt_client_packets_sent_total"
	MetricPacketsReceived   = "mqtt_client_packets_received_total"
	MetricMessagesPublished = "mqtt_client_messages_published_total"
	MetricMessagesReceived  = "mqtt_client_messages_received_total"
	MetricSubscriptions     = "mqtt_client_subscriptions"
	MetricAckLatency        = "mqtt_client_ack_latency_seconds"
)

// Standard metric labels.
const (
	LabelPacketType = "packet_type"
	LabelQoS        = "qos"
	LabelReturnCode = "return_code"
)

// clientMetrics records the client's standard metrics.
type clientMetrics struct {
	metrics Metrics
}

func (c clientMetrics) connected(code ReturnCode) {
	c.metrics.Gauge(MetricConnected, nil).Set(1)
	c.metrics.Counter(MetricConnectsTotal, MetricLabels{LabelReturnCode: strconv.Itoa(int(code))}).Inc()
}

func (c clientMetrics) connectRefused(code ReturnCode) {
	c.metrics.Counter(MetricConnectsTotal, MetricLabels{LabelReturnCode: strconv.Itoa(int(code))}).Inc()
}

func (c clientMetrics) disconnected() {
	c.metrics.Gauge(MetricConnected, nil).Set(0)
}

func (c clientMetrics) reconnectAttempt() {
	c.metrics.Counter(MetricReconnectAttempts, nil).Inc()
}

func (c clientMetrics) packetSent(t PacketType) {
	c.metrics.Counter(MetricPacketsSent, MetricLabels{LabelPacketType: t.String()}).Inc()
}

func (c clientMetrics) packetReceived(t PacketType) {
	c.metrics.Counter(MetricPacketsReceived, MetricLabels{LabelPacketType: t.String()}).Inc()
}

func (c clientMetrics) published(qos byte) {
	c.metrics.Counter(MetricMessagesPublished, MetricLabels{LabelQoS: strconv.Itoa(int(qos))}).Inc()
}

func (c clientMetrics) messageReceived(qos byte) {
	c.metrics.Counter(MetricMessagesReceived, MetricLabels{LabelQoS: strconv.Itoa(int(qos))}).Inc()
}

func (c clientMetrics) subscriptions(n int) {
	c.metrics.Gauge(MetricSubscriptions, nil).Set(float64(n))
}

func (c clientMetrics) ackLatency(t PacketType, d time.Duration) {
	c.metrics.Histogram(MetricAckLatency, MetricLabels{LabelPacketType: t.String()}).ObserveDuration(d)
}
