package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/oshokin/traffic-light/internal/api/grpc/trafficlight"
	"github.com/oshokin/traffic-light/internal/api/web"
	"github.com/oshokin/traffic-light/internal/config"
	"github.com/oshokin/traffic-light/internal/logger"
	"github.com/oshokin/traffic-light/internal/version"
)

// Options controls the traffic-light-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// HTTPAddress provides an optional listen address override for the web UI.
	HTTPAddress string
	// DryRun replaces the configured device driver with the log driver.
	DryRun bool
	// ControlRate limits HTTP control requests per client and minute.
	ControlRate int
}

const (
	// readHeaderTimeout bounds reading request headers of the web server.
	readHeaderTimeout = 10 * time.Second
	// shutdownTimeout bounds the graceful shutdown of the web server.
	shutdownTimeout = 5 * time.Second
)

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the gRPC and HTTP servers and blocks until ctx is canceled or
// one of them fails. The lights are switched off on the way out.
func Run(ctx context.Context, opts *Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err := logger.Configure(settings.LogLevel, settings.LogFormat); err != nil {
		return err
	}

	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "traffic-light-server")

	if opts.DryRun {
		settings.Device.Driver = config.DriverLog
	}

	// CLI arguments override the config.
	grpcAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	httpAddress := settings.HTTPAddress
	if opts.HTTPAddress != "" {
		httpAddress = opts.HTTPAddress
	}

	st, err := newStack(ctx, settings.Device)
	if err != nil {
		return fmt.Errorf("initialise device: %w", err)
	}

	defer st.close(ctx)

	lc := net.ListenConfig{}

	grpcListener, err := lc.Listen(ctx, "tcp", grpcAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", grpcAddress, err)
	}

	httpListener, err := lc.Listen(ctx, "tcp", httpAddress)
	if err != nil {
		_ = grpcListener.Close()

		return fmt.Errorf("listen on %s: %w", httpAddress, err)
	}

	logger.InfoKV(ctx, "Traffic light server listening", append([]any{
		"grpc_address", grpcListener.Addr().String(),
		"http_address", httpListener.Addr().String(),
	}, version.KV()...)...)

	return serve(ctx, st, grpcListener, httpListener, web.Options{ControlRate: opts.ControlRate})
}

// serve runs both servers on the given listeners until ctx is done.
func serve(ctx context.Context, st *stack, grpcListener, httpListener net.Listener, webOpts web.Options) error {
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(trafficlight.LoggingInterceptor(ctx)))
	trafficlight.RegisterTrafficLightServer(grpcServer, trafficlight.NewServer(st.sequencer))

	httpServer := &http.Server{
		Handler:           web.NewRouter(ctx, st.sequencer, webOpts),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down servers")

		// Leave the hardware dark and end the websocket streams, which
		// Shutdown does not track. Runs on clean and failed exits alike.
		st.sequencer.Close(ctx)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)

		grpcServer.GracefulStop()

		if err != nil {
			return fmt.Errorf("shut down HTTP server: %w", err)
		}

		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "Servers stopped")

	return nil
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	// "server.example.com:8080" -> ":8080".
	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	return ":" + port, nil
}
