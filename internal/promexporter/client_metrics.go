package promexporter

import (
	"github.com/pior/homeworks"
	"github.com/pior/homeworks/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// Source is the client view the metrics are read from.
type Source interface {
	Stats() homeworks.ClientStats
	State() protocol.State
	CircuitBreakerState() (gobreaker.State, bool)
}

// ClientMetrics holds all client-related Prometheus metrics
type ClientMetrics struct {
	events             *prometheus.CounterVec
	circuitTransitions *prometheus.CounterVec
}

type statCounter struct {
	name  string
	help  string
	value func(homeworks.ClientStats) uint64
}

var statCounters = []statCounter{
	{"homeworks_read_bytes_total", "Bytes received from the controller", func(s homeworks.ClientStats) uint64 { return s.BytesRead }},
	{"homeworks_written_bytes_total", "Bytes written to the controller", func(s homeworks.ClientStats) uint64 { return s.BytesWritten }},
	{"homeworks_lines_total", "Non-empty protocol lines received", func(s homeworks.ClientStats) uint64 { return s.Lines }},
	{"homeworks_decoded_events_total", "Lines decoded into events", func(s homeworks.ClientStats) uint64 { return s.Events }},
	{"homeworks_warnings_total", "Malformed lines and undecodable chunks", func(s homeworks.ClientStats) uint64 { return s.Warnings }},
	{"homeworks_commands_total", "Commands sent to the controller", func(s homeworks.ClientStats) uint64 { return s.CommandsSent }},
	{"homeworks_connects_total", "Transports opened", func(s homeworks.ClientStats) uint64 { return s.Connects }},
	{"homeworks_disconnects_total", "Connection attempts ended", func(s homeworks.ClientStats) uint64 { return s.Disconnects }},
	{"homeworks_dial_errors_total", "Failed dials", func(s homeworks.ClientStats) uint64 { return s.DialErrors }},
	{"homeworks_auth_failures_total", "Attempts ended by a rejected or missing login", func(s homeworks.ClientStats) uint64 { return s.AuthFailures }},
}

// NewClientMetrics creates and registers all client metrics
func NewClientMetrics(registry *prometheus.Registry, source Source) *ClientMetrics {
	m := &ClientMetrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homeworks_events_total",
				Help: "Events consumed from the client, by kind",
			},
			[]string{"kind"},
		),
		circuitTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homeworks_circuit_breaker_transitions_total",
				Help: "Total circuit breaker state transitions",
			},
			[]string{"from", "to"},
		),
	}

	registry.MustRegister(m.events, m.circuitTransitions)

	for _, c := range statCounters {
		value := c.value
		registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: c.name, Help: c.help},
			func() float64 { return float64(value(source.Stats())) },
		))
	}

	registry.MustRegister(
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "homeworks_ready",
				Help: "1 when the controller connection is ready",
			},
			func() float64 {
				if source.State() == protocol.StateReady {
					return 1
				}
				return 0
			},
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "homeworks_connection_state",
				Help: "Handshake state (0=connecting, 1=awaiting-readiness, 2=logging-in, 3=ready, 4=lost)",
			},
			func() float64 { return float64(source.State()) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "homeworks_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half-open, 2=open, -1=disabled)",
			},
			func() float64 {
				state, ok := source.CircuitBreakerState()
				if !ok {
					return -1
				}
				return float64(circuitStateToInt(state))
			},
		),
	)

	// Every kind is exported from the start, at zero
	for _, k := range protocol.Kinds {
		m.events.WithLabelValues(k.String())
	}

	return m
}

// RecordEvent counts a consumed event
func (m *ClientMetrics) RecordEvent(ev protocol.Event) {
	m.events.WithLabelValues(ev.Kind.String()).Inc()
}

// RecordCircuitBreakerTransition records a state change.
// Its signature matches gobreaker.Settings.OnStateChange.
func (m *ClientMetrics) RecordCircuitBreakerTransition(_ string, from, to gobreaker.State) {
	m.circuitTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

func circuitStateToInt(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
