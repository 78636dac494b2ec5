//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/traffic-light/internal/api/grpc/trafficlight"
	"github.com/oshokin/traffic-light/internal/config"
	"github.com/oshokin/traffic-light/internal/domain/light"
)

// Client wraps the gRPC TrafficLightService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the traffic light server.
	conn *grpc.ClientConn
	// api is the TrafficLightService client.
	api *trafficlight.TrafficLightClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// actor identifies the caller in server logs.
	actor *light.Actor
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor attaches the caller identity to every call.
func WithActor(actor *light.Actor) Option {
	return func(c *Client) {
		c.actor = actor.Clone()
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the traffic light server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial traffic light server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         trafficlight.NewTrafficLightClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// SetLight lights a single color.
func (c *Client) SetLight(ctx context.Context, color light.Color) (trafficlight.State, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.SetLight(callCtx, wrapperspb.String(string(color)))
	if err != nil {
		return trafficlight.State{}, fmt.Errorf("set light %s: %w", color, err)
	}

	return trafficlight.FromProtoState(resp), nil
}

// StartSequence starts the automatic sequence.
func (c *Client) StartSequence(ctx context.Context) (trafficlight.State, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.StartSequence(callCtx, &emptypb.Empty{})
	if err != nil {
		return trafficlight.State{}, fmt.Errorf("start sequence: %w", err)
	}

	return trafficlight.FromProtoState(resp), nil
}

// StopSequence stops the sequence and switches every light off.
func (c *Client) StopSequence(ctx context.Context) (trafficlight.State, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.StopSequence(callCtx, &emptypb.Empty{})
	if err != nil {
		return trafficlight.State{}, fmt.Errorf("stop sequence: %w", err)
	}

	return trafficlight.FromProtoState(resp), nil
}

// GetState retrieves the current light state.
func (c *Client) GetState(ctx context.Context) (trafficlight.State, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetState(callCtx, &emptypb.Empty{})
	if err != nil {
		return trafficlight.State{}, fmt.Errorf("get state: %w", err)
	}

	return trafficlight.FromProtoState(resp), nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline. The actor, if
// any, is attached as call metadata.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = trafficlight.WithActor(ctx, c.actor)

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

// FormatState renders a state for log messages, e.g.
// "red=active yellow=active green=off (prepare_go, running)".
func FormatState(state trafficlight.State) string {
	mode := "idle"
	if state.Running {
		mode = "running"
	}

	return fmt.Sprintf("%s (%s, %s)", state.Lights, state.Phase, mode)
}
