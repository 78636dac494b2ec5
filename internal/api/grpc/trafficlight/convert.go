package trafficlight

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/traffic-light/internal/domain/light"
)

// Struct field names of the light state.
const (
	fieldPhase     = "phase"
	fieldRunning   = "running"
	fieldUpdatedAt = "updated_at"
	fieldRunID     = "run_id"
)

// toProtoState converts a snapshot to its Struct representation.
func toProtoState(snap light.Snapshot) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldPhase:   structpb.NewStringValue(snap.Phase.String()),
		fieldRunning: structpb.NewBoolValue(snap.Running),
	}

	for _, c := range light.Colors() {
		fields[string(c)] = structpb.NewStringValue(string(snap.Lights.Get(c)))
	}

	if !snap.UpdatedAt.IsZero() {
		fields[fieldUpdatedAt] = structpb.NewStringValue(snap.UpdatedAt.UTC().Format(time.RFC3339Nano))
	}

	return &structpb.Struct{Fields: fields}
}

// State is the client-side view of the light state.
type State struct {
	// Lights are the channel states.
	Lights light.Lights
	// Phase is the sequence phase name, "none" outside a sequence.
	Phase string
	// Running indicates an automatic sequence is in progress.
	Running bool
	// UpdatedAt is when the lights last changed.
	UpdatedAt time.Time
	// RunID identifies the sequence started by StartSequence.
	RunID string
}

// FromProtoState converts a Struct returned by the service.
func FromProtoState(s *structpb.Struct) State {
	fields := s.GetFields()

	state := State{
		Lights: light.Lights{
			Red:    stateField(fields, light.Red),
			Yellow: stateField(fields, light.Yellow),
			Green:  stateField(fields, light.Green),
		},
		Phase:   fields[fieldPhase].GetStringValue(),
		Running: fields[fieldRunning].GetBoolValue(),
		RunID:   fields[fieldRunID].GetStringValue(),
	}

	if ts := fields[fieldUpdatedAt].GetStringValue(); ts != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			state.UpdatedAt = parsed
		}
	}

	return state
}

// stateField reads a color field, treating anything but "active" as off.
func stateField(fields map[string]*structpb.Value, c light.Color) light.State {
	if light.State(fields[string(c)].GetStringValue()) == light.Active {
		return light.Active
	}

	return light.Off
}
