package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/camera-funnel/internal/service/checker"
)

var (
	// healthAddress overrides the configured gRPC health address.
	healthAddress string
	// healthTimeout bounds every check.
	healthTimeout time.Duration

	// healthCmd queries a running funnel.
	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Report whether every listener of a running funnel is serving.",
		Long: `Queries the gRPC health service of a running funnel for every listener the
configuration enables. Exits with a non-zero status when any of them is down.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return checker.Run(cmd.Context(), &checker.Options{
				ConfigPath: configPath,
				Address:    healthAddress,
				Timeout:    healthTimeout,
				Out:        cmd.OutOrStdout(),
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	healthCmd.Flags().StringVarP(&healthAddress, "address", "a", "", "gRPC health address (defaults to health_addr from settings)")
	healthCmd.Flags().DurationVarP(&healthTimeout, "timeout", "t", 3*time.Second, "timeout of every check")
}
