package sequencer

import "time"

// Clock schedules phase transitions.
type Clock interface {
	// After returns a channel that receives once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// systemClock is the wall clock.
type systemClock struct{}

// After delegates to time.After.
func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
