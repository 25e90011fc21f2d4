// Package cmd defines the CLI commands for the bdecrawler executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by subcommands.
type rootOptions struct {
	configPath string
}

// newRootCmd creates the root command and attaches its subcommands.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "bdecrawler",
		Short: "Collects Banco de España press releases, speeches and articles.",
		Long: `bdecrawler walks the Banco de España news listings for a publication
window, downloads each document and its PDF, extracts text, language and
tables, and writes one JSON run file per run.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (YAML, TOML or JSON)")
	cmd.AddCommand(newScrapeCmd(opts))

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
