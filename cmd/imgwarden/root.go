package main

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "imgwarden",
	Short: "Event-triggered image moderation service",
	Long: `imgwarden watches bucket notifications for newly uploaded images,
classifies them for explicit content, and quarantines a blurred copy of
anything flagged.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
}
