// Package metrics 定義 Prometheus 指標，由 /metrics 匯出
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chat"

var (
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections",
		Help:      "Live real-time connections.",
	})

	ActiveCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_calls",
		Help:      "Rooms with a non-empty call participant set.",
	})

	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_received_total",
		Help:      "Inbound events by name and outcome.",
	}, []string{"event", "outcome"})

	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_total",
		Help:      "Outbound events queued to connections.",
	}, []string{"event"})

	DroppedDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_deliveries_total",
		Help:      "Outbound events dropped because the recipient buffer was full or closed.",
	})

	MessagesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_relayed_total",
		Help:      "Chat messages persisted and broadcast.",
	})

	MessagesPruned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_pruned_total",
		Help:      "Messages removed by the retention job.",
	})

	PersistDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "persist_duration_seconds",
		Help:      "Latency of persistence calls made by the coordinator.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})
)
