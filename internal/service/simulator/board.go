package simulator

import (
	"sync"

	"github.com/oshokin/traffic-light/internal/domain/light"
)

// Animation constants of the OLED walker.
const (
	// ScreenWidth is the OLED width in pixels.
	ScreenWidth = 128
	// walkerStep is how far the walker moves per frame.
	walkerStep = 2
	// walkerOffscreen is how far past either edge the walker may go.
	walkerOffscreen = 10
)

// Walker is the animated pedestrian.
type Walker struct {
	// X is the horizontal position in pixels.
	X int `json:"x"`
	// Frame is the leg frame, 0 or 1.
	Frame int `json:"frame"`
	// Visible is true while green is lit.
	Visible bool `json:"visible"`
}

// BoardState is a copy of the board.
type BoardState struct {
	// Red is the red LED.
	Red bool `json:"red"`
	// Yellow is the yellow LED.
	Yellow bool `json:"yellow"`
	// Green is the green LED.
	Green bool `json:"green"`
	// Walker is the pedestrian animation.
	Walker Walker `json:"walker"`
	// Commands counts accepted /led requests.
	Commands uint64 `json:"commands"`
}

// Board holds the LED and animation state.
type Board struct {
	mu    sync.Mutex
	state BoardState
}

// NewBoard returns a board with every LED off.
func NewBoard() *Board {
	return new(Board)
}

// Set switches one LED. Unknown names are counted but change nothing.
// Switching green off sends the walker back to the left edge.
func (b *Board) Set(led string, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state.Commands++

	switch light.Color(led) {
	case light.Red:
		b.state.Red = on
	case light.Yellow:
		b.state.Yellow = on
	case light.Green:
		b.state.Green = on
		b.state.Walker.Visible = on

		if !on {
			b.state.Walker.X = 0
		}
	}
}

// Tick advances the animation by one frame. The walker only moves while
// green is lit and wraps back to the left once it leaves the screen.
func (b *Board) Tick() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.state.Green {
		return
	}

	w := &b.state.Walker
	w.X += walkerStep
	w.Frame = (w.Frame + 1) % 2

	if w.X > ScreenWidth+walkerOffscreen {
		w.X = -walkerOffscreen
	}
}

// State returns a copy of the board.
func (b *Board) State() BoardState {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// Lights returns the LEDs as light states.
func (s BoardState) Lights() light.Lights {
	toState := func(on bool) light.State {
		if on {
			return light.Active
		}

		return light.Off
	}

	return light.Lights{
		Red:    toState(s.Red),
		Yellow: toState(s.Yellow),
		Green:  toState(s.Green),
	}
}
