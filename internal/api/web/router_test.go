package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/traffic-light/internal/device"
	"github.com/oshokin/traffic-light/internal/domain/light"
	"github.com/oshokin/traffic-light/internal/sequencer"
)

var errTestOffline = errors.New("green LED offline")

// flakySink fails every green command.
type flakySink struct{}

// Send fails for green and succeeds otherwise.
func (flakySink) Send(_ context.Context, cmd device.Command) error {
	if cmd.Color == light.Green {
		return errTestOffline
	}

	return nil
}

// newTestServer starts the router over a real sequencer.
func newTestServer(t *testing.T) (*httptest.Server, *sequencer.Sequencer) {
	t.Helper()

	dispatcher := device.NewDispatcher(flakySink{})
	seq := sequencer.New(dispatcher)
	srv := httptest.NewServer(NewRouter(context.Background(), seq, Options{}))

	t.Cleanup(func() {
		seq.Close(context.Background())
		srv.Close()
		dispatcher.Close()
	})

	return srv, seq
}

// call performs a request and decodes the JSON body into a map.
func call(t *testing.T, method, url string) (int, map[string]any) {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, url, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
	}()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return resp.StatusCode, body
}

// TestRouter_ServesUI checks the page has the five controls.
func TestRouter_ServesUI(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
	}()

	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, label := range []string{"Green", "Yellow", "Red", "Start Sequence", "Stop Sequence"} {
		require.Contains(t, string(page), label)
	}
}

// TestRouter_ManualAndStop exercises the light and stop endpoints.
func TestRouter_ManualAndStop(t *testing.T) {
	t.Parallel()

	srv, seq := newTestServer(t)

	code, body := call(t, http.MethodPost, srv.URL+"/api/lights/red")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "active", body["red"])
	require.Equal(t, "off", body["green"])
	require.Equal(t, light.Only(light.Red), seq.Lights())

	code, body = call(t, http.MethodPost, srv.URL+"/api/lights/blue")
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, body["error"], "unknown color")

	code, body = call(t, http.MethodPost, srv.URL+"/api/sequence/stop")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "off", body["red"])
	require.Equal(t, light.AllOff(), seq.Lights())

	code, body = call(t, http.MethodGet, srv.URL+"/api/state")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "none", body["phase"])
}

// TestRouter_WaitReportsDeliveries checks ?wait=true exposes per-command outcomes.
func TestRouter_WaitReportsDeliveries(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	code, body := call(t, http.MethodPost, srv.URL+"/api/lights/green?wait=true")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "active", body["green"])

	deliveries, ok := body["deliveries"].([]any)
	require.True(t, ok)
	require.Len(t, deliveries, 3)

	leds := make([]string, 0, len(deliveries))

	for _, raw := range deliveries {
		d, _ := raw.(map[string]any)
		leds = append(leds, d["led"].(string))

		if d["led"] == "green" {
			require.Equal(t, false, d["ok"])
			require.Contains(t, d["error"], errTestOffline.Error())
		} else {
			require.Equal(t, true, d["ok"])
		}
	}

	require.Equal(t, []string{"red", "yellow", "green"}, leds)
}

// TestRouter_Sequence verifies start, rejection of a second start and stop.
func TestRouter_Sequence(t *testing.T) {
	t.Parallel()

	srv, seq := newTestServer(t)

	code, body := call(t, http.MethodPost, srv.URL+"/api/sequence/start")
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, body["run_id"])
	require.Equal(t, true, body["running"])
	require.Equal(t, "go", body["phase"])

	code, _ = call(t, http.MethodPost, srv.URL+"/api/sequence/start")
	require.Equal(t, http.StatusConflict, code)

	code, body = call(t, http.MethodPost, srv.URL+"/api/sequence/stop")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, false, body["running"])

	seq.Wait()
	require.False(t, seq.Running())
}

// TestRouter_StartWaitReportsFirstPhase checks ?wait=true on start reports
// the deliveries of the green phase.
func TestRouter_StartWaitReportsFirstPhase(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	code, body := call(t, http.MethodPost, srv.URL+"/api/sequence/start?wait=true")
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, body["run_id"])
	require.Equal(t, "go", body["phase"])

	deliveries, ok := body["deliveries"].([]any)
	require.True(t, ok)
	require.Len(t, deliveries, 3)

	for _, raw := range deliveries {
		d, _ := raw.(map[string]any)

		switch d["led"] {
		case "green":
			require.Equal(t, "on", d["state"])
			require.Equal(t, false, d["ok"])
		default:
			require.Equal(t, "off", d["state"])
			require.Equal(t, true, d["ok"])
		}
	}
}

// TestRouter_ClosedSequencer checks control endpoints answer 503 once the
// sequencer is closed and leave the lights dark.
func TestRouter_ClosedSequencer(t *testing.T) {
	t.Parallel()

	srv, seq := newTestServer(t)

	_, err := seq.SetRed(context.Background())
	require.NoError(t, err)

	seq.Close(context.Background())

	for _, path := range []string{"/api/lights/green", "/api/sequence/start", "/api/sequence/stop"} {
		code, body := call(t, http.MethodPost, srv.URL+path)
		require.Equal(t, http.StatusServiceUnavailable, code, path)
		require.Contains(t, body["error"], sequencer.ErrClosed.Error(), path)
	}

	require.Equal(t, light.AllOff(), seq.Lights())
}

// TestRouter_WebSocketStream checks subscribers get the current state and updates.
func TestRouter_WebSocketStream(t *testing.T) {
	t.Parallel()

	srv, seq := newTestServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
		_ = conn.Close()
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var state stateResponse
	require.NoError(t, conn.ReadJSON(&state))
	require.Equal(t, light.Off, state.Green)

	_, err = seq.SetGreen(context.Background())
	require.NoError(t, err)

	require.NoError(t, conn.ReadJSON(&state))
	require.Equal(t, light.Active, state.Green)
	require.Equal(t, light.Off, state.Red)
}
