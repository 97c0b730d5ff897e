package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley chat server",
	Long: `Parley is a small multi-room-less chat server. Browsers get an
htmx-driven page with live fragment updates; headless clients can speak
the raw JSON frame protocol on the data endpoint.

Use "parley [command] --help" for more information about a specific command.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
