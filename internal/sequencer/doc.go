// Package sequencer owns the traffic light state and drives it.
//
// Manual operations set exactly one color, Stop turns everything off and
// StartSequence runs the fixed go / prepare to stop / stop / prepare to go /
// go cycle on a single goroutine. Every transition updates the in-memory
// light.Lights value and emits three device commands through an Emitter.
//
// A running sequence is cancelled by Stop, by any manual operation and by
// Close. A second StartSequence while one is running is rejected. Phase
// transitions of a cancelled run never touch the state: each run carries a
// generation number that must still be current when a phase applies.
package sequencer
