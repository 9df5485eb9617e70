// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from csvexport runs.
//
// The package exposes a narrow Backend interface (counters plus timing
// observations) and a global, pluggable backend that defaults to a no-op, so
// the helpers below are always safe to call even when no real backend is
// configured. Concrete systems live in subpackages (prompush, datadog).
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by the helpers in this package.
const (
	StepTotal           = "csvexport_step_total"
	StepDurationSeconds = "csvexport_step_duration_seconds"
	RecordsTotal        = "csvexport_records_total"
	BytesTotal          = "csvexport_bytes_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep measures latency and success/failure of one step of a job,
// e.g. "load", "parse" or "export".
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRows increments the record counter for the given job and kind.
//
// Kinds in use:
//   - "loaded": records produced by a source
//   - "written": data rows rendered to a sink
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBytes increments the byte counter for bytes handed to a sink.
func RecordBytes(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(BytesTotal, float64(delta), Labels{
		"job": job,
	})
}
