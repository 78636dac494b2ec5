package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/traffic-light/internal/api/grpc/trafficlight"
	"github.com/oshokin/traffic-light/internal/config"
	"github.com/oshokin/traffic-light/internal/logger"
	"github.com/oshokin/traffic-light/internal/service/common"
)

// Options controls the watcher polling behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// PollInterval defines the interval between state checks.
	PollInterval time.Duration
}

// DefaultPollInterval is the polling interval used when none is given.
const DefaultPollInterval = 500 * time.Millisecond

// stateGetter reads the current state from the server.
type stateGetter interface {
	GetState(ctx context.Context) (trafficlight.State, error)
}

// Run polls the light state and logs every change until ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "traffic-light-watch")

	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	actor, err := common.DetectActor()
	if err != nil {
		return fmt.Errorf("detect actor: %w", err)
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout), common.WithActor(actor))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Watching traffic light", "server_address", serverAddress, "interval", interval.String())

	poll(ctx, client, interval, func(state trafficlight.State) {
		logger.Infof(ctx, "Traffic light: %s", common.FormatState(state))
	})

	logger.Info(ctx, "Context canceled, exiting")

	return nil
}

// poll reads the state every interval and calls onChange with the first
// state and every one that differs from its predecessor.
func poll(ctx context.Context, client stateGetter, interval time.Duration, onChange func(trafficlight.State)) {
	var (
		last trafficlight.State
		seen bool
	)

	check := func() {
		state, err := client.GetState(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.ErrorKV(ctx, "Get state failed", "error", err)
			}

			return
		}

		if seen && sameState(last, state) {
			return
		}

		last, seen = state, true

		onChange(state)
	}

	check()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// sameState reports whether two states show the same lights and phase.
func sameState(a, b trafficlight.State) bool {
	return a.Lights == b.Lights && a.Phase == b.Phase && a.Running == b.Running
}
