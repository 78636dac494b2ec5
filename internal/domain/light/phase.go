package light

import "time"

// Phase is one step of the automatic sequence.
type Phase int

const (
	// PhaseNone means no sequence phase is applied.
	PhaseNone Phase = iota
	// PhaseGo lights green.
	PhaseGo
	// PhasePrepareStop lights yellow.
	PhasePrepareStop
	// PhaseStop lights red.
	PhaseStop
	// PhasePrepareGo lights red and yellow together.
	PhasePrepareGo
)

// String returns the phase name used in logs, metrics and the API.
func (p Phase) String() string {
	switch p {
	case PhaseGo:
		return "go"
	case PhasePrepareStop:
		return "prepare_stop"
	case PhaseStop:
		return "stop"
	case PhasePrepareGo:
		return "prepare_go"
	default:
		return "none"
	}
}

// Lights returns the channel states the phase applies.
func (p Phase) Lights() Lights {
	switch p {
	case PhaseGo:
		return Only(Green)
	case PhasePrepareStop:
		return Only(Yellow)
	case PhaseStop:
		return Only(Red)
	case PhasePrepareGo:
		return RedYellow()
	default:
		return AllOff()
	}
}

// Step is a phase with the wait before the next step starts.
// A zero Wait marks the final step.
type Step struct {
	// Phase is the phase applied by this step.
	Phase Phase
	// Wait is the delay from the start of this step to the next one.
	Wait time.Duration
}

const (
	// GoDuration is how long green stays on before yellow.
	GoDuration = 10 * time.Second
	// PrepareStopDuration is how long yellow stays on before red.
	PrepareStopDuration = 2 * time.Second
	// StopDuration is how long red stays on before red+yellow.
	StopDuration = 10 * time.Second
	// PrepareGoDuration is how long red+yellow stay on before green.
	PrepareGoDuration = 2 * time.Second
)

// Sequence returns the fixed one-shot sequence:
// go, prepare to stop, stop, prepare to go, go.
func Sequence() []Step {
	return []Step{
		{Phase: PhaseGo, Wait: GoDuration},
		{Phase: PhasePrepareStop, Wait: PrepareStopDuration},
		{Phase: PhaseStop, Wait: StopDuration},
		{Phase: PhasePrepareGo, Wait: PrepareGoDuration},
		{Phase: PhaseGo},
	}
}

// SequenceDuration returns the time from the first step to the last one.
func SequenceDuration() time.Duration {
	var total time.Duration
	for _, step := range Sequence() {
		total += step.Wait
	}

	return total
}
