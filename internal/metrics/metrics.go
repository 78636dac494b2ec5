package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "traffic_light"

// Delivery results.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Sequence run outcomes.
const (
	RunCompleted = "completed"
	RunCancelled = "cancelled"
	RunRejected  = "rejected"
)

var (
	deviceCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "device_commands_total",
		Help:      "Device commands by color, requested state and delivery result",
	}, []string{"color", "state", "result"})

	deviceCommandSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "device_command_duration_seconds",
		Help:      "Time until a device command completed or failed",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"color"})

	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Light state transitions by source (manual, stop or sequence phase)",
	}, []string{"source"})

	sequenceRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sequence_runs_total",
		Help:      "Automatic sequence runs by outcome",
	}, []string{"outcome"})

	lightActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "light_active",
		Help:      "Current light state per color (1 active, 0 off)",
	}, []string{"color"})

	wsClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_clients",
		Help:      "Connected live state subscribers",
	})
)

// ObserveDeviceCommand records one delivered or failed device command.
func ObserveDeviceCommand(color, state, result string, seconds float64) {
	deviceCommands.WithLabelValues(color, state, result).Inc()
	deviceCommandSeconds.WithLabelValues(color).Observe(seconds)
}

// RecordTransition counts a light state change by its source.
func RecordTransition(source string) {
	transitions.WithLabelValues(source).Inc()
}

// RecordSequenceRun counts a finished, cancelled or rejected sequence run.
func RecordSequenceRun(outcome string) {
	sequenceRuns.WithLabelValues(outcome).Inc()
}

// SetLightActive publishes the state of one color.
func SetLightActive(color string, active bool) {
	value := 0.0
	if active {
		value = 1.0
	}

	lightActive.WithLabelValues(color).Set(value)
}

// SetWebsocketClients publishes the number of live subscribers.
func SetWebsocketClients(n int) {
	wsClients.Set(float64(n))
}
