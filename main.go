package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "voxelradiosity",
		Short:         "Diffuse global illumination for voxel scenes",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(opts.verbose)
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "settings.yaml", "settings file (.yaml, .yml or .toml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log per-iteration details")

	cmd.AddCommand(newServeCmd(opts), newBuildCmd(opts), newInfoCmd(opts))
	return cmd
}
