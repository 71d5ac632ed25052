// Package metrics defines the instrumentation surface for the payment
// stack. The facilitator and HTTP middleware record event counts and
// operation latencies through the Recorder interface; production wiring
// uses the Prometheus implementation.
package metrics

import "time"

// Recorder counts payment events and observes operation latencies.
// Labels carry the network so dashboards can split devnet from mainnet.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// NoopRecorder drops every observation.
type NoopRecorder struct{}

func (NoopRecorder) IncCounter(string, map[string]string)                    {}
func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}
