//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/traffic-light/internal/api/grpc/trafficlight"
	"github.com/oshokin/traffic-light/internal/device"
	"github.com/oshokin/traffic-light/internal/domain/light"
	"github.com/oshokin/traffic-light/internal/sequencer"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestFormatState renders lights, phase and mode.
func TestFormatState(t *testing.T) {
	t.Parallel()

	state := trafficlight.State{
		Lights:  light.RedYellow(),
		Phase:   "prepare_go",
		Running: true,
	}

	require.Equal(t, "red=active yellow=active green=off (prepare_go, running)", FormatState(state))
}

// actorRecorder captures the actor of every call.
type actorRecorder struct {
	// mu guards actors.
	mu sync.Mutex
	// actors are the callers seen by the server.
	actors []*light.Actor
}

// intercept records the caller before handling the call.
func (r *actorRecorder) intercept(
	ctx context.Context,
	req any,
	_ *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	r.mu.Lock()
	r.actors = append(r.actors, trafficlight.ActorFromContext(ctx))
	r.mu.Unlock()

	return handler(ctx, req)
}

// TestClient_RoundTrip exercises every call against a real server.
func TestClient_RoundTrip(t *testing.T) {
	t.Parallel()

	dispatcher := device.NewDispatcher(device.NewLogSink())
	seq := sequencer.New(dispatcher)
	recorder := new(actorRecorder)

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(recorder.intercept))
	trafficlight.RegisterTrafficLightServer(grpcServer, trafficlight.NewServer(seq))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = grpcServer.Serve(lis)
	}()

	t.Cleanup(func() {
		grpcServer.Stop()
		seq.Close(context.Background())
		dispatcher.Close()
	})

	actor := &light.Actor{Hostname: "junction-1", Username: "operator"}

	client, err := Dial(context.Background(), lis.Addr().String(), WithActor(actor), WithCallTimeout(time.Second))
	require.NoError(t, err)

	defer func() {
		require.NoError(t, client.Close())
	}()

	ctx := context.Background()

	state, err := client.SetLight(ctx, light.Red)
	require.NoError(t, err)
	require.Equal(t, light.Only(light.Red), state.Lights)

	state, err = client.StartSequence(ctx)
	require.NoError(t, err)
	require.True(t, state.Running)
	require.NotEmpty(t, state.RunID)
	require.Equal(t, light.Only(light.Green), state.Lights)

	_, err = client.StartSequence(ctx)
	require.Equal(t, codes.FailedPrecondition, status.Code(err))

	state, err = client.StopSequence(ctx)
	require.NoError(t, err)
	require.False(t, state.Running)
	require.Equal(t, light.AllOff(), state.Lights)

	state, err = client.GetState(ctx)
	require.NoError(t, err)
	require.Equal(t, "none", state.Phase)

	_, err = client.SetLight(ctx, light.Color("blue"))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	require.Len(t, recorder.actors, 6)

	for _, got := range recorder.actors {
		require.Equal(t, actor, got)
	}
}
