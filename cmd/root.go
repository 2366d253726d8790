// Package cmd defines and implements the CLI commands for the hdock-batch
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hdock-batch",
		Short: "Bulk-submit receptor/ligand docking jobs to the HDOCK web service.",
		Long: `hdock-batch drives headless Chrome against the HDOCK submission form,
one browser session per worker, and records the outcome of every input row
(token, result URL, ok flag) in an append-only run log.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; defaults and HDOCK_* env vars apply without one)")

	cmd.AddCommand(newSubmitCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
