package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/oshokin/traffic-light/internal/device"
	"github.com/oshokin/traffic-light/internal/domain/light"
	"github.com/oshokin/traffic-light/internal/logger"
	"github.com/oshokin/traffic-light/internal/sequencer"
)

// handlers binds HTTP endpoints to the service.
type handlers struct {
	// service performs the traffic light operations.
	service Service
}

// getState returns the current snapshot.
func (h *handlers) getState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newStateResponse(h.service.Snapshot()))
}

// setLight lights the color named in the path.
func (h *handlers) setLight(w http.ResponseWriter, r *http.Request) {
	c, err := light.ParseColor(chi.URLParam(r, "color"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	batch, err := h.service.SetColor(r.Context(), c)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.respond(w, r, batch, "")
}

// startSequence starts the automatic sequence.
func (h *handlers) startSequence(w http.ResponseWriter, r *http.Request) {
	runID, batch, err := h.service.StartSequence(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.respond(w, r, batch, runID)
}

// stopSequence stops the sequence and turns every light off.
func (h *handlers) stopSequence(w http.ResponseWriter, r *http.Request) {
	batch, err := h.service.Stop(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.respond(w, r, batch, "")
}

// respond writes the state. With ?wait=true it first waits for the device
// deliveries of batch and reports them.
func (h *handlers) respond(w http.ResponseWriter, r *http.Request, batch *device.Batch, runID string) {
	resp := newStateResponse(h.service.Snapshot())
	resp.RunID = runID

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait && batch != nil {
		resp.Deliveries = newDeliveryResponses(batch.Commands, batch.Wait())
	}

	writeJSON(w, http.StatusOK, resp)
}

// health reports liveness.
func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps service errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, light.ErrUnknownColor):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, sequencer.ErrSequenceRunning):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, sequencer.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

// writeError writes an error body.
func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Logger().Debugw("Write response", "error", err)
	}
}
