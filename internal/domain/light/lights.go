package light

import (
	"errors"
	"fmt"
	"strings"
)

// Color identifies one LED channel of the traffic light.
type Color string

const (
	// Red is the top "stop" channel.
	Red Color = "red"
	// Yellow is the middle "prepare" channel.
	Yellow Color = "yellow"
	// Green is the bottom "go" channel.
	Green Color = "green"
)

// ErrUnknownColor is returned when a string does not name an LED channel.
var ErrUnknownColor = errors.New("unknown color")

// Colors returns all channels in command emission order.
func Colors() []Color {
	return []Color{Red, Yellow, Green}
}

// ParseColor converts user input into a Color.
func ParseColor(s string) (Color, error) {
	switch c := Color(strings.ToLower(strings.TrimSpace(s))); c {
	case Red, Yellow, Green:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownColor, s)
	}
}

// State is the state of a single LED channel.
type State string

const (
	// Off means the channel is dark.
	Off State = "off"
	// Active means the channel is lit.
	Active State = "active"
)

// IsActive reports whether the channel is lit.
func (s State) IsActive() bool {
	return s == Active
}

// stateOf maps a boolean to a channel state.
func stateOf(on bool) State {
	if on {
		return Active
	}

	return Off
}

// Lights holds the state of all three channels.
// The zero value is not valid; use AllOff or one of the constructors.
type Lights struct {
	// Red is the state of the red channel.
	Red State `json:"red"`
	// Yellow is the state of the yellow channel.
	Yellow State `json:"yellow"`
	// Green is the state of the green channel.
	Green State `json:"green"`
}

// AllOff returns lights with every channel dark.
func AllOff() Lights {
	return Lights{Red: Off, Yellow: Off, Green: Off}
}

// Only returns lights where exactly the given color is active.
func Only(c Color) Lights {
	return Lights{
		Red:    stateOf(c == Red),
		Yellow: stateOf(c == Yellow),
		Green:  stateOf(c == Green),
	}
}

// RedYellow returns the "prepare to go" combination.
func RedYellow() Lights {
	return Lights{Red: Active, Yellow: Active, Green: Off}
}

// Get returns the state of a channel. Unknown colors read as Off.
func (l Lights) Get(c Color) State {
	var s State

	switch c {
	case Red:
		s = l.Red
	case Yellow:
		s = l.Yellow
	case Green:
		s = l.Green
	}

	if s == "" {
		return Off
	}

	return s
}

// ActiveCount returns how many channels are lit.
func (l Lights) ActiveCount() int {
	count := 0

	for _, c := range Colors() {
		if l.Get(c).IsActive() {
			count++
		}
	}

	return count
}

// String renders the lights as "red=off yellow=active green=off".
func (l Lights) String() string {
	parts := make([]string, 0, len(Colors()))
	for _, c := range Colors() {
		parts = append(parts, fmt.Sprintf("%s=%s", c, l.Get(c)))
	}

	return strings.Join(parts, " ")
}
