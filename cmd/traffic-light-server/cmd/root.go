package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/traffic-light/internal/config"
	"github.com/oshokin/traffic-light/internal/service/server"
	"github.com/oshokin/traffic-light/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// httpAddress overrides the web UI listen address.
	httpAddress string
	// dryRun logs device commands instead of sending them.
	dryRun bool
	// controlRate limits HTTP control requests per client and minute.
	controlRate int

	// rootCmd represents the base command for running the traffic light server.
	rootCmd = &cobra.Command{
		Use:   "traffic-light-server [listen-address]",
		Short: "Run the traffic light sequencer with its gRPC API and web UI.",
		Long: `Starts the traffic light server that owns the red, yellow and green lights.

Every change is sent to the device as three GET /led requests, one per color.
The web UI offers one button per color plus Start Sequence and Stop Sequence;
traffic-light-ctl talks to the same sequencer over gRPC.

Only the port from server_addr config is used for gRPC listening (e.g., :50051).
Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:50051).
The device address comes from the configuration file and defaults to 192.168.5.5.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				HTTPAddress:   httpAddress,
				DryRun:        dryRun,
				ControlRate:   controlRate,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the traffic-light-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&httpAddress, "http-addr", "", "web UI listen address (overrides http_addr)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log device commands instead of sending them")
	rootCmd.Flags().IntVar(&controlRate, "control-rate", 0, "HTTP control requests per client and minute")
}
