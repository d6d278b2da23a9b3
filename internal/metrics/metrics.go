// Package metrics exposes prometheus instrumentation for the control
// connection and registry, a domain-stack supplement (SPEC_FULL.md §5.4)
// that has no corresponding spec.md requirement.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ControlConnectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ringwatch_control_connection_state",
		Help: "Current control connection state (0=IDLE,1=CONNECTING,2=CONNECTED,3=RECONNECTING,4=CLOSING,5=CLOSED).",
	})
	ConnectAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ringwatch_connect_attempts_total",
		Help: "Total number of connect attempts by outcome.",
	}, []string{"outcome"})
	ReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ringwatch_reconnects_total",
		Help: "Total number of successful reconnects after connection loss.",
	})
	ProtocolVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ringwatch_protocol_version",
		Help: "Currently negotiated CQL native protocol version.",
	})
	KnownHosts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ringwatch_known_hosts",
		Help: "Number of hosts currently known to the registry.",
	})
	HostsUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ringwatch_hosts_up",
		Help: "Number of known hosts currently marked up.",
	})
	DiscoveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ringwatch_discovery_duration_seconds",
		Help:    "Duration of system.local/system.peers discovery queries during connect.",
		Buckets: prometheus.DefBuckets,
	})
	EventsReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ringwatch_events_received_total",
		Help: "Total number of pushed topology/status events received, by family and subtype.",
	}, []string{"family", "subtype"})
	RegistryMutationErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ringwatch_registry_mutation_errors_total",
		Help: "Total number of rejected reentrant registry mutations.",
	})
)
