package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/traffic-light/internal/config"
	"github.com/oshokin/traffic-light/internal/domain/light"
	"github.com/oshokin/traffic-light/internal/service/client"
	"github.com/oshokin/traffic-light/internal/service/watcher"
	"github.com/oshokin/traffic-light/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides server_addr from the config.
	serverAddress string
	// retryInterval enables retries while the server is unavailable.
	retryInterval time.Duration
	// pollInterval is the watch polling period.
	pollInterval time.Duration

	// rootCmd represents the base command of the traffic light client.
	rootCmd = &cobra.Command{
		Use:   "traffic-light-ctl",
		Short: "Control a traffic light server.",
		Long: `Sends commands to traffic-light-server over gRPC.

Light a single color, start or stop the automatic sequence
(green 10s, yellow 2s, red 10s, red+yellow 2s, green), read the
current state or watch it change.`,
		SilenceUsage: true,
	}
)

// Execute runs the traffic-light-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// actionCommand builds a subcommand performing one client action.
func actionCommand(use, short string, action client.Action, color light.Color) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return client.Run(ctx, &client.Options{
				ConfigPath:    cfgPath,
				ServerAddress: serverAddress,
				Action:        action,
				Color:         color,
				RetryInterval: retryInterval,
			})
		},
	}
}

// watchCommand builds the watch subcommand.
func watchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Log every change of the lights until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return watcher.Run(ctx, &watcher.Options{
				ConfigPath:    cfgPath,
				ServerAddress: serverAddress,
				PollInterval:  pollInterval,
			})
		},
	}

	cmd.Flags().DurationVarP(&pollInterval, "interval", "i", watcher.DefaultPollInterval, "polling interval")

	return cmd
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&serverAddress, "server", "s", "", "server address (overrides server_addr)")
	rootCmd.PersistentFlags().
		DurationVar(&retryInterval, "retry", 0, "retry interval while the server is unavailable (0 disables)")

	rootCmd.AddCommand(
		actionCommand("green", "Light green only.", client.ActionSetLight, light.Green),
		actionCommand("yellow", "Light yellow only.", client.ActionSetLight, light.Yellow),
		actionCommand("red", "Light red only.", client.ActionSetLight, light.Red),
		actionCommand("start", "Start the automatic sequence.", client.ActionStart, ""),
		actionCommand("stop", "Stop the sequence and switch every light off.", client.ActionStop, ""),
		actionCommand("state", "Print the current lights.", client.ActionState, ""),
		watchCommand(),
	)
}
