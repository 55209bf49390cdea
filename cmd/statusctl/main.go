// statusctl is a diagnostics client for the status logging service. It
// mirrors what the advisory agents do over HTTP, which makes it handy for
// checking a deployment end to end without running an agent.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:          "statusctl",
	Short:        "Diagnostics client for the status logging service",
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "base URL of the status logging service")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
