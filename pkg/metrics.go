package gpm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the acquisition counters. A nil *Metrics records nothing.
type Metrics struct {
	iterations     prometheus.Counter
	accepted       prometheus.Counter
	saturated      prometheus.Counter
	driverWarnings prometheus.Counter
	bytesWritten   prometheus.Counter
	state          prometheus.Gauge
	waitLatency    prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gpm_iterations_total",
			Help: "Acquisition iterations attempted.",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gpm_records_accepted_total",
			Help: "Records that passed the saturation filter and were written.",
		}),
		saturated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gpm_records_saturated_total",
			Help: "Records rejected because a monitored channel saturated.",
		}),
		driverWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gpm_driver_warnings_total",
			Help: "Non fatal statuses returned by the digitizer driver.",
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gpm_bytes_written_total",
			Help: "Header and payload bytes appended to the output file.",
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gpm_acquisition_state",
			Help: "Acquisition state: 0 configuring, 1 running, 2 draining, 3 closed.",
		}),
		waitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gpm_wait_for_acquisition_seconds",
			Help:    "Time spent waiting for each acquisition to complete.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}
	reg.MustRegister(m.iterations, m.accepted, m.saturated, m.driverWarnings,
		m.bytesWritten, m.state, m.waitLatency)
	return m
}

func (m *Metrics) incIteration() {
	if m != nil {
		m.iterations.Inc()
	}
}

func (m *Metrics) incAccepted() {
	if m != nil {
		m.accepted.Inc()
	}
}

func (m *Metrics) incSaturated() {
	if m != nil {
		m.saturated.Inc()
	}
}

func (m *Metrics) incDriverWarning() {
	if m != nil {
		m.driverWarnings.Inc()
	}
}

func (m *Metrics) addBytes(n int64) {
	if m != nil && n > 0 {
		m.bytesWritten.Add(float64(n))
	}
}

func (m *Metrics) setState(s State) {
	if m != nil {
		m.state.Set(float64(s))
	}
}

func (m *Metrics) observeWait(d time.Duration) {
	if m != nil {
		m.waitLatency.Observe(d.Seconds())
	}
}
