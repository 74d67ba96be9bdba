// Package metrics exposes process-wide Prometheus gauges/counters via
// promauto, grounded on the teacher pack's observability.go idiom
// (NikeGunn-tutu/internal/infra/observability).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ringserver"

var (
	// SubServers tracks how many sub-servers the dispatcher is running.
	SubServers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "subservers",
		Help:      "Number of running sub-servers.",
	})

	// ConnectedPeers tracks peers currently held in a sub-server's table.
	ConnectedPeers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connected_peers",
		Help:      "Peers connected per sub-server.",
	}, []string{"subserver"})

	// EntitiesAlive tracks live entities per sub-server.
	EntitiesAlive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "entities_alive",
		Help:      "Entities currently alive per sub-server.",
	}, []string{"subserver"})

	// PacketsProcessed counts successfully handled packets by transport.
	PacketsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packets_processed_total",
		Help:      "Packets successfully dispatched to a State handler.",
	}, []string{"transport"})

	// ProtocolDisconnects counts peers disconnected for a protocol
	// violation, labeled by the short reason string.
	ProtocolDisconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "protocol_disconnects_total",
		Help:      "Peers disconnected due to a protocol error, by reason.",
	}, []string{"reason"})

	// TickDuration histograms the wall-clock time spent inside one
	// sub-server tick (excluding the wait for the next ticker fire).
	TickDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "tick_duration_seconds",
		Help:      "Time spent executing one State.tick invocation.",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.015, 0.03},
	}, []string{"subserver", "state"})
)
