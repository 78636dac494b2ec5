package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/traffic-light/internal/service/simulator"
	"github.com/oshokin/traffic-light/internal/version"
)

var (
	// frameInterval is the animation period.
	frameInterval time.Duration
	// logLevel is the minimum level of log messages.
	logLevel string
	// logFormat is the log encoder.
	logFormat string

	// rootCmd represents the base command of the device simulator.
	rootCmd = &cobra.Command{
		Use:   "led-device-sim [listen-address]",
		Short: "Simulate the ESP32 traffic light board.",
		Long: `Serves GET /led?led=<color>&state=<on|off> like the ESP32 firmware and
keeps the LED states in memory. While green is lit a pedestrian walks
across the simulated 128x32 screen. GET /state shows the board.

Point traffic-light-server at it with device.address in the configuration file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return simulator.Run(ctx, &simulator.Options{
				ListenAddress: listenAddress,
				FrameInterval: frameInterval,
				LogLevel:      logLevel,
				LogFormat:     logFormat,
			})
		},
	}
)

// Execute runs the led-device-sim CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().DurationVar(&frameInterval, "frame", simulator.DefaultFrameInterval, "animation frame interval")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "log level")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "console", "log format: console or json")
}
