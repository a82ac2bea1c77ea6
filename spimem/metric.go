package spimem

import (
	"sync/atomic"
)

// RunnerMetrics contains atomic metrics for a Runner.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc, or
// exported as a telemetry field map with Snapshot.
type RunnerMetrics struct {
	// ExchangeCount indicates the number of bus exchanges, status polls included.
	ExchangeCount atomic.Uint64
	// StatusPollCount indicates the number of status reads.
	StatusPollCount atomic.Uint64
	// InitRetryCount indicates the number of init phases repeated after a transient fault.
	InitRetryCount atomic.Uint64
	// DataRetryCount indicates the number of data phases repeated after a transient fault.
	DataRetryCount atomic.Uint64
	// TransientFaultCount indicates the number of status bytes reporting overrun or underrun.
	TransientFaultCount atomic.Uint64
	// RegisterErrorCount indicates the number of status bytes reporting a register error.
	RegisterErrorCount atomic.Uint64
	// IntegrityFaultCount indicates the number of verified reads that did not match.
	IntegrityFaultCount atomic.Uint64
	// PollExhaustedCount indicates the number of wait loops that ran out of polls.
	PollExhaustedCount atomic.Uint64
	// ResyncCount indicates the number of Resync calls.
	ResyncCount atomic.Uint64

	// BytesWritten and BytesRead count payload bytes of completed transactions.
	BytesWritten atomic.Uint64
	BytesRead    atomic.Uint64
}

// Snapshot returns the current counter values keyed by field name.
func (m *RunnerMetrics) Snapshot() map[string]float64 {
	return map[string]float64{
		"exchanges":       float64(m.ExchangeCount.Load()),
		"status_polls":    float64(m.StatusPollCount.Load()),
		"init_retries":    float64(m.InitRetryCount.Load()),
		"data_retries":    float64(m.DataRetryCount.Load()),
		"transient_fault": float64(m.TransientFaultCount.Load()),
		"register_errors": float64(m.RegisterErrorCount.Load()),
		"integrity_fault": float64(m.IntegrityFaultCount.Load()),
		"poll_exhausted":  float64(m.PollExhaustedCount.Load()),
		"resyncs":         float64(m.ResyncCount.Load()),
		"bytes_written":   float64(m.BytesWritten.Load()),
		"bytes_read":      float64(m.BytesRead.Load()),
	}
}

func (m *RunnerMetrics) incExchangeCount() {
	m.ExchangeCount.Add(1)
}

func (m *RunnerMetrics) incStatusPollCount() {
	m.StatusPollCount.Add(1)
}

func (m *RunnerMetrics) incInitRetryCount() {
	m.InitRetryCount.Add(1)
}

func (m *RunnerMetrics) incDataRetryCount() {
	m.DataRetryCount.Add(1)
}

func (m *RunnerMetrics) incTransientFaultCount() {
	m.TransientFaultCount.Add(1)
}

func (m *RunnerMetrics) incRegisterErrorCount() {
	m.RegisterErrorCount.Add(1)
}

func (m *RunnerMetrics) incIntegrityFaultCount() {
	m.IntegrityFaultCount.Add(1)
}

func (m *RunnerMetrics) incPollExhaustedCount() {
	m.PollExhaustedCount.Add(1)
}

func (m *RunnerMetrics) incResyncCount() {
	m.ResyncCount.Add(1)
}

func (m *RunnerMetrics) addBytesWritten(n int) {
	m.BytesWritten.Add(uint64(n))
}

func (m *RunnerMetrics) addBytesRead(n int) {
	m.BytesRead.Add(uint64(n))
}
