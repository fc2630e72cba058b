package main

import (
	"github.com/spf13/cobra"
)

// appLoader returns the composed application for a command invocation.
type appLoader func(cmd *cobra.Command) (*app, error)

func NewRootCmd(version string, load appLoader) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "scbir",
		Short: "Fingerprint search workbench",
		Long: `Upload a fingerprint image, search the CBIR backend for similar prints,
browse the ranked results and compare them side by side.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)

	if load != nil {
		addSubcommands(rootCmd, load)
	}

	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("env", "", "Environment config to load (local|dev|prod, default $ENV or local)")
	cmd.PersistentFlags().String("config", "", "Explicit config file path")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
}

func addSubcommands(root *cobra.Command, load appLoader) {
	debug := &cobra.Command{
		Use:   "debug",
		Short: "Call the backend's diagnostic endpoints",
	}
	debug.AddCommand(
		NewPreprocessCmd(load),
		NewFeaturesCmd(load),
	)

	root.AddCommand(
		NewStatusCmd(load),
		NewSearchCmd(load),
		NewCompareCmd(load),
		NewWatchCmd(load),
		NewFetchCmd(load),
		NewServeCmd(load),
		debug,
	)
}
