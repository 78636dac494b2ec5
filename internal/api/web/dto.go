package web

import (
	"time"

	"github.com/oshokin/traffic-light/internal/device"
	"github.com/oshokin/traffic-light/internal/domain/light"
)

// stateResponse is the JSON view of a snapshot.
type stateResponse struct {
	Red        light.State        `json:"red"`
	Yellow     light.State        `json:"yellow"`
	Green      light.State        `json:"green"`
	Phase      string             `json:"phase"`
	Running    bool               `json:"running"`
	UpdatedAt  time.Time          `json:"updated_at"`
	RunID      string             `json:"run_id,omitempty"`
	Deliveries []deliveryResponse `json:"deliveries,omitempty"`
}

// deliveryResponse reports the outcome of one device command.
type deliveryResponse struct {
	LED   light.Color `json:"led"`
	State string      `json:"state"`
	OK    bool        `json:"ok"`
	Error string      `json:"error,omitempty"`
}

// errorResponse is the JSON body of failed requests.
type errorResponse struct {
	Error string `json:"error"`
}

// newStateResponse converts a snapshot.
func newStateResponse(snap light.Snapshot) stateResponse {
	return stateResponse{
		Red:       snap.Lights.Get(light.Red),
		Yellow:    snap.Lights.Get(light.Yellow),
		Green:     snap.Lights.Get(light.Green),
		Phase:     snap.Phase.String(),
		Running:   snap.Running,
		UpdatedAt: snap.UpdatedAt,
	}
}

// newDeliveryResponses converts batch outcomes in emission order.
func newDeliveryResponses(commands []device.Command, deliveries []device.Delivery) []deliveryResponse {
	byColor := make(map[light.Color]device.Delivery, len(deliveries))
	for _, d := range deliveries {
		byColor[d.Command.Color] = d
	}

	out := make([]deliveryResponse, 0, len(commands))

	for _, cmd := range commands {
		d := byColor[cmd.Color]
		resp := deliveryResponse{
			LED:   cmd.Color,
			State: cmd.StateParam(),
			OK:    d.OK(),
		}

		if d.Err != nil {
			resp.Error = d.Err.Error()
		}

		out = append(out, resp)
	}

	return out
}
