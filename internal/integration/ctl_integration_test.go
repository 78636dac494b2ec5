package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/traffic-light/internal/domain/light"
	"github.com/oshokin/traffic-light/internal/service/client"
	"github.com/oshokin/traffic-light/internal/service/common"
	"github.com/oshokin/traffic-light/internal/service/simulator"
	"github.com/oshokin/traffic-light/internal/service/watcher"
)

// boardShows waits until the simulated board shows want.
func boardShows(t *testing.T, board *simulator.Board, want light.Lights) {
	t.Helper()

	require.Eventually(t, func() bool {
		return board.State().Lights() == want
	}, 3*time.Second, 5*time.Millisecond)
}

// TestCtl_DrivesDevice runs ctl actions against the server and checks the board.
func TestCtl_DrivesDevice(t *testing.T) {
	t.Parallel()

	board, deviceURL := startDevice(t)
	ts := startServer(t, deviceURL)
	ctx := context.Background()

	run := func(action client.Action, color light.Color) error {
		return client.Run(ctx, &client.Options{
			ConfigPath: ts.configPath,
			Action:     action,
			Color:      color,
		})
	}

	require.NoError(t, run(client.ActionSetLight, light.Red))
	boardShows(t, board, light.Only(light.Red))

	require.NoError(t, run(client.ActionSetLight, light.Green))
	boardShows(t, board, light.Only(light.Green))

	require.NoError(t, run(client.ActionStart, ""))
	boardShows(t, board, light.Only(light.Green))

	require.Error(t, run(client.ActionStart, ""))

	require.NoError(t, run(client.ActionStop, ""))
	boardShows(t, board, light.AllOff())

	require.NoError(t, run(client.ActionState, ""))

	// Two manual changes, the first phase and the stop: three commands each.
	require.Eventually(t, func() bool {
		return board.State().Commands == 12
	}, 3*time.Second, 5*time.Millisecond)
}

// TestWeb_WaitReportsDeliveries uses the HTTP API and checks per-command outcomes.
func TestWeb_WaitReportsDeliveries(t *testing.T) {
	t.Parallel()

	board, deviceURL := startDevice(t)
	ts := startServer(t, deviceURL)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost,
		ts.httpURL+"/api/lights/yellow?wait=true", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Yellow     light.State `json:"yellow"`
		Deliveries []struct {
			LED string `json:"led"`
			OK  bool   `json:"ok"`
		} `json:"deliveries"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	require.Equal(t, light.Active, body.Yellow)
	require.Len(t, body.Deliveries, 3)

	for _, d := range body.Deliveries {
		require.True(t, d.OK, d.LED)
	}

	// Deliveries completed before the response.
	require.Equal(t, light.Only(light.Yellow), board.State().Lights())
}

// TestServer_UnreachableDevice keeps state consistent while every command fails.
func TestServer_UnreachableDevice(t *testing.T) {
	t.Parallel()

	ts := startServer(t, "http://"+reservePort(t))
	ctx := context.Background()

	c, err := common.Dial(ctx, ts.grpcAddress, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	defer func() {
		_ = c.Close()
	}()

	state, err := c.SetLight(ctx, light.Red)
	require.NoError(t, err)
	require.Equal(t, light.Only(light.Red), state.Lights)

	state, err = c.StartSequence(ctx)
	require.NoError(t, err)
	require.True(t, state.Running)

	state, err = c.GetState(ctx)
	require.NoError(t, err)
	require.Equal(t, light.Only(light.Green), state.Lights)
	require.Equal(t, "go", state.Phase)
}

// TestWatcher_ReturnsOnCancel runs the watcher against a live server and cancels it.
func TestWatcher_ReturnsOnCancel(t *testing.T) {
	t.Parallel()

	_, deviceURL := startDevice(t)
	ts := startServer(t, deviceURL)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := watcher.Run(ctx, &watcher.Options{
		ConfigPath:   ts.configPath,
		PollInterval: 20 * time.Millisecond,
	})
	require.NoError(t, err)
}
