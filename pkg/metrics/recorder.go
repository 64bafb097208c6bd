// Package metrics defines the instrumentation hook used by tokenkit components.
package metrics

import "time"

// Recorder observes the outcome and latency of a component operation.
// Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveOperation(component, operation, result string, d time.Duration)
}

type noopRecorder struct{}

// NewNoopRecorder returns a Recorder that discards observations.
func NewNoopRecorder() Recorder { return noopRecorder{} }

func (noopRecorder) ObserveOperation(string, string, string, time.Duration) {}
