package simulator

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/oshokin/traffic-light/internal/device"
	"github.com/oshokin/traffic-light/internal/logger"
)

// Response bodies of /led, identical to the firmware.
const (
	statusOK    = `{"status":"ok"}`
	statusError = `{"status":"error"}`
)

// NewHandler serves the board over HTTP.
func NewHandler(base context.Context, board *Board) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(allowAllOrigins)

	r.Get(device.LEDPath, handleLED(base, board))
	r.Get("/state", handleState(board))

	return r
}

// handleLED switches one LED. Any state other than "on" means off.
func handleLED(base context.Context, board *Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		if !query.Has("led") || !query.Has("state") {
			writeRaw(w, http.StatusBadRequest, statusError)
			return
		}

		led, on := query.Get("led"), query.Get("state") == "on"

		board.Set(led, on)

		logger.DebugKV(base, "LED switched", "led", led, "on", on)

		writeRaw(w, http.StatusOK, statusOK)
	}
}

// handleState reports the board as JSON.
func handleState(board *Board) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		_ = json.NewEncoder(w).Encode(board.State())
	}
}

// writeRaw writes a literal JSON body.
func writeRaw(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_, _ = w.Write([]byte(body))
}

// allowAllOrigins lets browser pages on any origin call the board.
func allowAllOrigins(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
