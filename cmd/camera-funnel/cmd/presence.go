package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/camera-funnel/internal/service/presence"
)

var (
	// atHome is the desired at-home flag.
	atHome bool
	// excludedCameras keep triggering while at home.
	excludedCameras []string

	// presenceCmd groups the presence policy commands.
	presenceCmd = &cobra.Command{
		Use:   "presence",
		Short: "Show or change the at-home policy.",
	}

	presenceShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the current at-home policy.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return presence.Show(cmd.Context(), &presence.Options{
				ConfigPath: configPath,
				Out:        cmd.OutOrStdout(),
			})
		},
	}

	presenceSetCmd = &cobra.Command{
		Use:   "set",
		Short: "Write a new at-home policy.",
		Long: `Writes the at-home policy file. A running funnel reloads it immediately.

While at home, triggers of every camera are dropped except those listed with --exclude.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return presence.Set(cmd.Context(), &presence.Options{
				ConfigPath: configPath,
				AtHome:     atHome,
				Exclude:    excludedCameras,
				Out:        cmd.OutOrStdout(),
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	presenceSetCmd.Flags().BoolVar(&atHome, "at-home", false, "somebody is at home")
	presenceSetCmd.Flags().StringArrayVar(&excludedCameras, "exclude", nil, "camera that keeps triggering while at home (repeatable)")

	presenceCmd.AddCommand(presenceShowCmd, presenceSetCmd)
}
