package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/traffic-light/internal/api/grpc/trafficlight"
	"github.com/oshokin/traffic-light/internal/config"
	"github.com/oshokin/traffic-light/internal/domain/light"
	"github.com/oshokin/traffic-light/internal/logger"
	"github.com/oshokin/traffic-light/internal/service/common"
)

// Action names a ctl operation.
type Action string

// Supported actions.
const (
	// ActionSetLight lights Options.Color only.
	ActionSetLight Action = "set-light"
	// ActionStart starts the automatic sequence.
	ActionStart Action = "start"
	// ActionStop stops the sequence and switches every light off.
	ActionStop Action = "stop"
	// ActionState prints the current state.
	ActionState Action = "state"
)

// Options configures a single ctl action.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Action selects the call to perform.
	Action Action

	// Color is the light for ActionSetLight.
	Color light.Color

	// RetryInterval enables retries while the server is unavailable.
	RetryInterval time.Duration
}

// errUnknownAction is returned for an unsupported action.
var errUnknownAction = errors.New("unknown action")

// Run performs the action, retrying while the server is unreachable if
// RetryInterval is set.
//
//nolint:cyclop // Retry loop and action dispatch read best in one place.
func Run(ctx context.Context, opts *Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "traffic-light-ctl")

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	call, err := actionCall(opts)
	if err != nil {
		return err
	}

	// Identify current user and hostname for the server logs.
	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout), common.WithActor(actor))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Calling traffic light server", "server_address", serverAddress, "action", opts.Action)

	// attempt calls once and reports whether the caller should give up.
	attempt := func() (bool, error) {
		state, err := call(ctx, client)
		if err == nil {
			logger.Infof(ctx, "Traffic light: %s", common.FormatState(state))

			if state.RunID != "" {
				logger.InfoKV(ctx, "Sequence started", "run_id", state.RunID)
			}

			return true, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return true, ctxErr
		}

		if opts.RetryInterval <= 0 || status.Code(err) != codes.Unavailable {
			return true, err
		}

		logger.WarnKV(ctx, "Server unavailable, retrying", "error", err, "interval", opts.RetryInterval.String())

		return false, nil
	}

	if done, err := attempt(); done {
		return err
	}

	ticker := time.NewTicker(opts.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if done, err := attempt(); done {
				return err
			}
		}
	}
}

// actionCall maps an action to the client call performing it.
func actionCall(opts *Options) (func(context.Context, *common.Client) (trafficlight.State, error), error) {
	switch opts.Action {
	case ActionSetLight:
		color, err := light.ParseColor(string(opts.Color))
		if err != nil {
			return nil, err
		}

		return func(ctx context.Context, c *common.Client) (trafficlight.State, error) {
			return c.SetLight(ctx, color)
		}, nil
	case ActionStart:
		return func(ctx context.Context, c *common.Client) (trafficlight.State, error) {
			return c.StartSequence(ctx)
		}, nil
	case ActionStop:
		return func(ctx context.Context, c *common.Client) (trafficlight.State, error) {
			return c.StopSequence(ctx)
		}, nil
	case ActionState:
		return func(ctx context.Context, c *common.Client) (trafficlight.State, error) {
			return c.GetState(ctx)
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownAction, opts.Action)
	}
}
