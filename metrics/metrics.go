// Package metrics exposes Prometheus counters for the telnet console
// engine. A nil *Metrics is valid and counts nothing, so the engine can
// run without metrics wired in.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "telnet_console"

// Input drop reasons used as the "reason" label on InputDropped.
const (
	DropLength       = "length"
	DropIAC          = "iac"
	DropNoBuffer     = "no_buffer"
	DropQueueFull    = "queue_full"
	DropUnregistered = "unregistered"
)

// Metrics holds the engine's counters.
type Metrics struct {
	linesSent           prometheus.Counter
	linesEvicted        prometheus.Counter
	inputDropped        *prometheus.CounterVec
	connectionsAccepted prometheus.Counter
	connectionsRejected prometheus.Counter
	sendFailures        prometheus.Counter
}

// New creates the engine's counters and registers them with reg. Pass nil
// to skip registration (counters still work, useful in tests).
//
// Parameters:
//   - reg: The Prometheus registerer, e.g. prometheus.DefaultRegisterer
//
// Returns:
//   - A new Metrics instance
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		linesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_sent_total",
			Help:      "Console lines submitted to the transport.",
		}),
		linesEvicted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_evicted_total",
			Help:      "Buffered lines evicted because the ring overflowed.",
		}),
		inputDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_dropped_total",
			Help:      "Client input messages dropped, by reason.",
		}, []string{"reason"}),
		connectionsAccepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Telnet client connections accepted.",
		}),
		connectionsRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_rejected_total",
			Help:      "Telnet client connections rejected while a session was active.",
		}),
		sendFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Transport send submissions or completions that failed.",
		}),
	}
}

// LineSent counts one line submitted to the transport.
func (m *Metrics) LineSent() {
	if m == nil {
		return
	}
	m.linesSent.Inc()
}

// LineEvicted counts one buffered line lost to ring overflow.
func (m *Metrics) LineEvicted() {
	if m == nil {
		return
	}
	m.linesEvicted.Inc()
}

// InputDropped counts one dropped input message for the given reason.
func (m *Metrics) InputDropped(reason string) {
	if m == nil {
		return
	}
	m.inputDropped.WithLabelValues(reason).Inc()
}

// ConnectionAccepted counts one accepted client connection.
func (m *Metrics) ConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsAccepted.Inc()
}

// ConnectionRejected counts one connection rejected by the single-client
// policy.
func (m *Metrics) ConnectionRejected() {
	if m == nil {
		return
	}
	m.connectionsRejected.Inc()
}

// SendFailure counts one failed transport send.
func (m *Metrics) SendFailure() {
	if m == nil {
		return
	}
	m.sendFailures.Inc()
}
