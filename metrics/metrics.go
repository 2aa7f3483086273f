// Package metrics holds the prometheus counters updated by the client
// packages. Counters are registered with the default registry on init; the
// cmd/kafka07 binary exposes them with Handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kafka07"

var (
	BytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bytes_written_total",
		Help:      "Number of bytes written to brokers, size headers included.",
	})
	BytesRead = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bytes_read_total",
		Help:      "Number of bytes read from brokers.",
	})
	// SocketFailures by operation ("connect", "read", "write").
	SocketFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "socket_failures_total",
		Help:      "Number of socket level failures; each one closes the connection.",
	}, []string{"op"})
	// Requests by request type name.
	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Number of requests sent to brokers.",
	}, []string{"type"})
	MessagesProduced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_produced_total",
		Help:      "Number of messages handed to produce requests.",
	})
	MessagesConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_consumed_total",
		Help:      "Number of messages decoded from fetch responses.",
	})
	FramesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_skipped_total",
		Help:      "Number of corrupt message frames skipped while consuming.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
