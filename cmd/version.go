package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionCmd builds the 'version' subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the testprobe CLI version",
		Long:  `Displays the testprobe CLI's build-time injected version string.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "testprobe version %s\n", rootCmd.Version)
		},
	}
}
