package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons a consumed message is skipped.
const (
	skipUndecodable = "undecodable"
	skipHandler     = "handler_failed"
)

var (
	consumerMessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "kafka",
			Name:      "consumed_total",
			Help:      "Messages handled and committed.",
		},
		[]string{"topic", "consumer_group"},
	)

	consumerMessagesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "kafka",
			Name:      "skipped_total",
			Help:      "Messages committed without a successful handler run.",
		},
		[]string{"topic", "consumer_group", "reason"},
	)

	producerMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "kafka",
			Name:      "published_total",
			Help:      "Events written to Kafka.",
		},
		[]string{"topic"},
	)

	producerPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "kafka",
			Name:      "publish_errors_total",
			Help:      "Failed Kafka writes.",
		},
		[]string{"topic"},
	)

	producerPublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "kafka",
			Name:      "publish_duration_seconds",
			Help:      "Latency of Kafka writes.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"topic"},
	)
)
