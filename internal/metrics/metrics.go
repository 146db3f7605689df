// Package metrics holds the Prometheus instruments shared by the stores,
// decoders and backends. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "positioning"

type Metrics struct {
	protocolErrors    *prometheus.CounterVec
	reassemblyResets  *prometheus.CounterVec
	readingsDelivered *prometheus.CounterVec
	batchesDelivered  *prometheus.CounterVec
	driverState       *prometheus.GaugeVec
	driverRestarts    *prometheus.CounterVec
}

// New creates the instruments and registers them with reg. A nil reg
// returns nil (no metrics).
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}
	m := &Metrics{
		protocolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "Input units dropped by a decoder",
		}, []string{"decoder", "kind"}),
		reassemblyResets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "reassembly_resets_total",
			Help:      "Multi-message batches discarded on an unexpected countdown",
		}, []string{"message"}),
		readingsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "readings_delivered_total",
			Help:      "Readings written to a channel",
		}, []string{"channel"}),
		batchesDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "batches_delivered_total",
			Help:      "Non-empty batches written to a channel",
		}, []string{"channel"}),
		driverState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "driver",
			Name:      "state",
			Help:      "Lifecycle state (0 stopped, 1 starting, 2 running, 3 stopping)",
		}, []string{"driver"}),
		driverRestarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "driver",
			Name:      "restarts_total",
			Help:      "Device reopen attempts",
		}, []string{"driver"}),
	}
	for _, c := range []prometheus.Collector{
		m.protocolErrors, m.reassemblyResets, m.readingsDelivered,
		m.batchesDelivered, m.driverState, m.driverRestarts,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ProtocolError(decoder, kind string) {
	if m == nil {
		return
	}
	m.protocolErrors.WithLabelValues(decoder, kind).Inc()
}

func (m *Metrics) ReassemblyReset(message string) {
	if m == nil {
		return
	}
	m.reassemblyResets.WithLabelValues(message).Inc()
}

// Delivered records one Update of n readings on channel.
func (m *Metrics) Delivered(channel string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.readingsDelivered.WithLabelValues(channel).Add(float64(n))
	m.batchesDelivered.WithLabelValues(channel).Inc()
}

func (m *Metrics) DriverState(driver string, state int) {
	if m == nil {
		return
	}
	m.driverState.WithLabelValues(driver).Set(float64(state))
}

func (m *Metrics) DriverRestart(driver string) {
	if m == nil {
		return
	}
	m.driverRestarts.WithLabelValues(driver).Inc()
}
