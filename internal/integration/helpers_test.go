package integration

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/traffic-light/internal/config"
	"github.com/oshokin/traffic-light/internal/service/server"
	"github.com/oshokin/traffic-light/internal/service/simulator"
)

// reservePort returns a free local address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

// startDevice serves a simulated board and returns it with its URL.
func startDevice(t *testing.T) (*simulator.Board, string) {
	t.Helper()

	board := simulator.NewBoard()
	srv := httptest.NewServer(simulator.NewHandler(context.Background(), board))
	t.Cleanup(srv.Close)

	return board, srv.URL
}

// testServer is a running traffic-light-server.
type testServer struct {
	// grpcAddress is the gRPC address clients dial.
	grpcAddress string
	// httpURL is the base URL of the web UI.
	httpURL string
	// configPath is the settings file the server was started with.
	configPath string
}

// startServer runs traffic-light-server against deviceAddress until the test ends.
func startServer(t *testing.T, deviceAddress string) *testServer {
	t.Helper()

	ts := &testServer{
		grpcAddress: reservePort(t),
		configPath:  filepath.Join(t.TempDir(), config.DefaultConfigFilename),
	}

	httpAddress := reservePort(t)
	ts.httpURL = "http://" + httpAddress

	require.NoError(t, config.Save(ts.configPath, &config.Config{
		ServerAddress: ts.grpcAddress,
		HTTPAddress:   httpAddress,
		Timeout:       3 * time.Second,
		LogLevel:      "warn",
		Device: config.Device{
			Driver:  config.DriverHTTP,
			Address: deviceAddress,
			Timeout: time.Second,
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{ConfigPath: ts.configPath})
	}()

	t.Cleanup(func() {
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.httpURL + "/healthz")
		if err != nil {
			return false
		}

		_ = resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	return ts
}
