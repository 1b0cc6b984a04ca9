package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand adds `version [--short]` to root.
func AttachCobraVersionCommand(root *cobra.Command) {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			line := Full()
			if short {
				line = Short()
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), line)

			return err
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "print only the release tag")
	root.AddCommand(cmd)
}
