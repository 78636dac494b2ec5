package trafficlight

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/traffic-light/internal/device"
	"github.com/oshokin/traffic-light/internal/domain/light"
	"github.com/oshokin/traffic-light/internal/sequencer"
)

// fakeService implements Service for unit testing the transport.
type fakeService struct {
	// mu protects the fields below.
	mu sync.Mutex
	// snap is the state returned by Snapshot.
	snap light.Snapshot
	// startErr is returned by StartSequence.
	startErr error
	// stopErr is returned by Stop.
	stopErr error
	// actors records the caller identity seen by SetColor.
	actors []*light.Actor
}

// SetColor lights c only.
func (f *fakeService) SetColor(ctx context.Context, c light.Color) (*device.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.actors = append(f.actors, ActorFromContext(ctx))
	f.snap = light.Snapshot{Lights: light.Only(c), UpdatedAt: time.Now()}

	return nil, nil
}

// StartSequence returns startErr or a fixed run id.
func (f *fakeService) StartSequence(context.Context) (string, *device.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.startErr != nil {
		return "", nil, f.startErr
	}

	f.snap = light.Snapshot{Lights: light.Only(light.Green), Phase: light.PhaseGo, Running: true}

	return "run-1", nil, nil
}

// Stop returns stopErr or turns every light off.
func (f *fakeService) Stop(context.Context) (*device.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopErr != nil {
		return nil, f.stopErr
	}

	f.snap = light.Snapshot{Lights: light.AllOff()}

	return nil, nil
}

// Snapshot returns the stored state.
func (f *fakeService) Snapshot() light.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.snap
}

// TestServer_SetLight_Validation ensures invalid requests return InvalidArgument errors.
func TestServer_SetLight_Validation(t *testing.T) {
	t.Parallel()

	s := NewServer(new(fakeService))

	_, err := s.SetLight(context.Background(), nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.SetLight(context.Background(), wrapperspb.String("purple"))
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

// TestServer_StartSequence_Running maps ErrSequenceRunning to FailedPrecondition.
func TestServer_StartSequence_Running(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakeService{startErr: sequencer.ErrSequenceRunning})

	_, err := s.StartSequence(context.Background(), new(emptypb.Empty))
	require.Equal(t, codes.FailedPrecondition, status.Code(err))
}

// TestServer_StopSequence_Closed maps ErrClosed to Unavailable.
func TestServer_StopSequence_Closed(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakeService{stopErr: sequencer.ErrClosed})

	_, err := s.StopSequence(context.Background(), new(emptypb.Empty))
	require.Equal(t, codes.Unavailable, status.Code(err))
}

// TestStateConversion checks snapshot fields survive the Struct representation.
func TestStateConversion(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	snap := light.Snapshot{
		Lights:    light.RedYellow(),
		Phase:     light.PhasePrepareGo,
		Running:   true,
		UpdatedAt: ts,
	}

	got := FromProtoState(toProtoState(snap))

	require.Equal(t, snap.Lights, got.Lights)
	require.Equal(t, "prepare_go", got.Phase)
	require.True(t, got.Running)
	require.True(t, ts.Equal(got.UpdatedAt))
}

// TestService_Roundtrip runs the service over an in-memory listener with
// the logging interceptor and checks the actor travels in metadata.
func TestService_Roundtrip(t *testing.T) {
	t.Parallel()

	lis := bufconn.Listen(1 << 20)
	svc := new(fakeService)

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(context.Background())))
	RegisterTrafficLightServer(grpcServer, NewServer(svc))

	go func() {
		_ = grpcServer.Serve(lis)
	}()
	defer grpcServer.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	defer func() {
		_ = conn.Close()
	}()

	client := NewTrafficLightClient(conn)
	ctx := WithActor(context.Background(), &light.Actor{Hostname: "crossing-pc", Username: "operator"})

	resp, err := client.SetLight(ctx, wrapperspb.String("yellow"))
	require.NoError(t, err)
	require.Equal(t, light.Only(light.Yellow), FromProtoState(resp).Lights)

	resp, err = client.StartSequence(ctx, new(emptypb.Empty))
	require.NoError(t, err)

	state := FromProtoState(resp)
	require.Equal(t, "run-1", state.RunID)
	require.True(t, state.Running)

	resp, err = client.StopSequence(ctx, new(emptypb.Empty))
	require.NoError(t, err)
	require.Equal(t, light.AllOff(), FromProtoState(resp).Lights)

	resp, err = client.GetState(ctx, new(emptypb.Empty))
	require.NoError(t, err)
	require.False(t, FromProtoState(resp).Running)

	_, err = client.SetLight(ctx, wrapperspb.String("blue"))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	svc.mu.Lock()
	defer svc.mu.Unlock()
	require.Len(t, svc.actors, 1)
	require.Equal(t, "operator@crossing-pc", svc.actors[0].String())
}
