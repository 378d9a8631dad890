// Package metrics defines the Prometheus counters exposed by the intake
// service and the handler that serves them.
package metrics
