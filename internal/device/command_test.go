package device

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/traffic-light/internal/domain/light"
)

// TestCommandsFor verifies one command per color in red, yellow, green order.
func TestCommandsFor(t *testing.T) {
	t.Parallel()

	got := CommandsFor(light.RedYellow())

	require.Equal(t, []Command{
		{Color: light.Red, On: true},
		{Color: light.Yellow, On: true},
		{Color: light.Green, On: false},
	}, got)
	require.Equal(t, "green=off", got[2].String())
}

// TestDeliveryError_Unwrap checks the cause stays reachable through errors.Is.
func TestDeliveryError_Unwrap(t *testing.T) {
	t.Parallel()

	err := error(&DeliveryError{
		Command: Command{Color: light.Red, On: true},
		Err:     ErrUnexpectedStatus,
	})

	require.ErrorIs(t, err, ErrUnexpectedStatus)
	require.Contains(t, err.Error(), "red=on")

	var deliveryErr *DeliveryError
	require.True(t, errors.As(err, &deliveryErr))
	require.Equal(t, light.Red, deliveryErr.Command.Color)
}
