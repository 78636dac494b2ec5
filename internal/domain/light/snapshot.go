package light

import "time"

// Snapshot is the observable traffic light state at a point in time.
type Snapshot struct {
	// Lights are the channel states.
	Lights Lights
	// Phase is the sequence phase that produced Lights, or PhaseNone
	// when the last change came from a manual operation or Stop.
	Phase Phase
	// Running indicates whether an automatic sequence is in progress.
	Running bool
	// UpdatedAt is when Lights last changed.
	UpdatedAt time.Time
}
