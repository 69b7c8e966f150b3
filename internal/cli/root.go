// Package cli defines the demo-studio commands.
package cli

import (
	"github.com/spf13/cobra"

	"demo-studio/internal/bootstrap"
	"demo-studio/internal/version"
)

// Dependencies carries the wired application into the commands.
type Dependencies struct {
	App *bootstrap.App
}

// NewRootCmd builds the demo-studio command tree.
func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "demo-studio",
		Short: "Produce recorded product demos with scripted agents",
		Long: "demo-studio spins up an ephemeral video session, drives scripted agents\n" +
			"through a timed script, records the call, and downloads the rendered video.",
		SilenceUsage: true,
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.AddCommand(NewRunCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))

	return rootCmd
}
