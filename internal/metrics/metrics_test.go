package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// TestObserveDeviceCommand verifies the counter is labelled by color, state and result.
func TestObserveDeviceCommand(t *testing.T) {
	t.Parallel()

	before := testutil.ToFloat64(deviceCommands.WithLabelValues("red", "on", ResultFailed))

	ObserveDeviceCommand("red", "on", ResultFailed, 0.01)

	require.InDelta(t, before+1, testutil.ToFloat64(deviceCommands.WithLabelValues("red", "on", ResultFailed)), 0)
}

// TestSetLightActive checks the gauge switches between 0 and 1.
func TestSetLightActive(t *testing.T) {
	t.Parallel()

	SetLightActive("metrics-test", true)
	require.InDelta(t, 1.0, testutil.ToFloat64(lightActive.WithLabelValues("metrics-test")), 0)

	SetLightActive("metrics-test", false)
	require.InDelta(t, 0.0, testutil.ToFloat64(lightActive.WithLabelValues("metrics-test")), 0)
}
