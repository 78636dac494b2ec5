package simulator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/traffic-light/internal/logger"
	"github.com/oshokin/traffic-light/internal/version"
)

// Options controls the simulator process.
type Options struct {
	// ListenAddress is the HTTP listen address.
	ListenAddress string
	// FrameInterval is the animation period.
	FrameInterval time.Duration
	// LogLevel is the minimum level of log messages.
	LogLevel string
	// LogFormat is "console" or "json".
	LogFormat string
}

const (
	// DefaultListenAddress matches the firmware's port 80 on a free local port.
	DefaultListenAddress = "127.0.0.1:8081"
	// DefaultFrameInterval is the firmware's loop delay.
	DefaultFrameInterval = 100 * time.Millisecond

	// readHeaderTimeout bounds reading request headers.
	readHeaderTimeout = 10 * time.Second
	// shutdownTimeout bounds the graceful shutdown.
	shutdownTimeout = 5 * time.Second
)

// Run serves the simulated board until ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	if opts.LogLevel == "" {
		opts.LogLevel = "info"
	}

	if err := logger.Configure(opts.LogLevel, opts.LogFormat); err != nil {
		return err
	}

	ctx = logger.WithName(ctx, "led-device-sim")

	address := opts.ListenAddress
	if address == "" {
		address = DefaultListenAddress
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	logger.InfoKV(ctx, "LED device simulator listening",
		append([]any{"listen_address", lis.Addr().String()}, version.KV()...)...)

	return serve(ctx, NewBoard(), lis, opts.FrameInterval)
}

// serve runs the HTTP server and the animation loop on lis.
func serve(ctx context.Context, board *Board, lis net.Listener, frameInterval time.Duration) error {
	if frameInterval <= 0 {
		frameInterval = DefaultFrameInterval
	}

	server := &http.Server{
		Handler:           NewHandler(ctx, board),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		animate(groupCtx, board, frameInterval)

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down simulator")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shut down HTTP server: %w", err)
		}

		return nil
	})

	return group.Wait()
}

// animate advances the board every interval until ctx is done.
func animate(ctx context.Context, board *Board, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			board.Tick()
		}
	}
}
