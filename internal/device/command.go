package device

import (
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/traffic-light/internal/domain/light"
)

// Command asks the device to switch one LED on or off.
type Command struct {
	// Color is the LED channel to switch.
	Color light.Color
	// On is the requested LED state.
	On bool
}

// StateParam returns the wire value of the requested state: "on" or "off".
func (c Command) StateParam() string {
	if c.On {
		return "on"
	}

	return "off"
}

// String renders the command as "red=on".
func (c Command) String() string {
	return fmt.Sprintf("%s=%s", c.Color, c.StateParam())
}

// CommandsFor returns one command per color, in emission order.
func CommandsFor(l light.Lights) []Command {
	colors := light.Colors()
	commands := make([]Command, 0, len(colors))

	for _, c := range colors {
		commands = append(commands, Command{
			Color: c,
			On:    l.Get(c).IsActive(),
		})
	}

	return commands
}

// ErrUnexpectedStatus is wrapped when the device answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected device status")

// DeliveryError is the single failure kind of the device path:
// a command that could not be delivered for any reason.
type DeliveryError struct {
	// Command is the command that failed.
	Command Command
	// Err is the underlying transport, timeout or status error.
	Err error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s: %v", e.Command, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Delivery is the outcome of one command.
type Delivery struct {
	// Command is the delivered command.
	Command Command
	// Err is nil on success, otherwise a *DeliveryError.
	Err error
	// Duration is how long the delivery took.
	Duration time.Duration
}

// OK reports whether the command reached the device.
func (d Delivery) OK() bool {
	return d.Err == nil
}
