package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/wayfinder/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wayfinder-demo",
	Short: "Wayfinder - client-side service load balancer demo harness",
	Long: `Wayfinder-demo feeds a YAML fixture of clusters, services, and
endpoints through an in-memory discovery publisher into the wayfinder
reconciliation engine, then prints what the engine resolved for a
service: its transport clients, tracker clients, strategies, and
partition mapping.

It exists to exercise the engine end to end; it is not part of the
library's public contract.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Wayfinder demo version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(resolveCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{
		Level:      level,
		JSONOutput: jsonOut,
	})
}
