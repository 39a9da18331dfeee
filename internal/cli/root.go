// Package cli provides the command-line interface for onionpan.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

const defaultConfigDir = ".onionpan"

var configDir string

var rootCmd = &cobra.Command{
	Use:   "onionpan",
	Short: "Collect .onion links posted to a Telegram channel",
	Long: "onionpan reads new posts from a Telegram channel, extracts .onion URLs, " +
		"and appends them to a JSONL log. Progress is checkpointed so each run only sees new posts.",
	SilenceUsage: true,
	RunE:         runAction,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("onionpan %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", defaultConfigDir, "config directory")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
