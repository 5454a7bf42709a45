package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for imagefinder.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imagefinder",
		Short: "Harvest image URLs from a website",
		Long: `imagefinder crawls a website breadth-first from a seed URL and collects
the URL of every image it references (<img src> and icon links).

The crawl never leaves the seed's host and is bounded by a depth ceiling,
a page budget, a fixed number of workers and a politeness delay.
Every harvest is stored locally so that later crawls can be compared.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
