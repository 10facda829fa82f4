// Package cmd defines the CLI commands for the boletin-crawler
// executable.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boletin-crawler",
		Short: "Scrapes the Boletín Oficial PBA and summarizes new norms with AI",
		Long: `boletin-crawler is the ingestion tool behind the provincial bulletin
transparency site. Each scheduled run fetches the latest bulletin,
extracts the published norms, summarizes the new ones with an external
AI endpoint, and atomically rewrites the JSON dataset the static front
end reads.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults and BOLETIN_* env vars apply when omitted)")

	cmd.AddCommand(newScrapeCmd())

	return cmd
}

// Execute runs the CLI. A failed run exits non-zero so the external
// scheduler can see it.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
