// Package metrics registers the Prometheus collectors of the traffic light
// and exposes small recording helpers so callers never touch label sets.
package metrics
