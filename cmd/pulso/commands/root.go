package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pulso",
	Short: "Pulso - weekly performance analytics for hospitality venues",
	Long: `Pulso Unified CLI

Recomputes each venue's weekly performance record from the raw
operational sources: sales, visits, expense ledger, stock
availability, prep timings, reservations, reviews and surveys.

Usage:
  go run ./cmd/pulso [command]

Examples:
  go run ./cmd/pulso api
  go run ./cmd/pulso recompute --venue 7 --year 2026 --week 35
  go run ./cmd/pulso scheduler start
  go run ./cmd/pulso test-db`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
