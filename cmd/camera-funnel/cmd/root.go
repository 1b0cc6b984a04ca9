package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/camera-funnel/internal/config"
	"github.com/oshokin/camera-funnel/internal/logger"
	"github.com/oshokin/camera-funnel/internal/service/funnel"
	"github.com/oshokin/camera-funnel/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd runs the funnel.
	rootCmd = &cobra.Command{
		Use:   "camera-funnel",
		Short: "Funnel camera motion and doorbell triggers from HTTP, MQTT and SMTP.",
		Long: `Starts the camera event funnel.

Triggers arrive as HTTP requests (GET /motion?<camera>, GET /motion/reset?<camera>,
GET /doorbell?<camera>), as MQTT messages on the configured camera topics, or as
mails whose recipient names the camera. Every trigger is checked against the
at-home policy and the camera's motion timeout before it is recorded.

Each listener starts on its own; a port that cannot be bound is logged and the
remaining listeners keep running.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			logger.InfoKV(ctx, "Starting camera funnel", version.KV()...)

			options := &funnel.Options{
				ConfigPath: configPath,
				LogLevel:   logLevel,
			}

			return funnel.Run(ctx, options)
		},
	}
)

// Execute runs the camera-funnel CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		logger.Errorf(context.Background(), "camera-funnel: %v", err)
		logger.Sync()
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(presenceCmd, healthCmd)
}
