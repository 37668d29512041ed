package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	outputFmt string
	tokenFlag string
)

var rootCmd = &cobra.Command{
	Use:   "stockctl",
	Short: "CLI for the StockTrail inventory server",
	Long: `stockctl is a command-line tool for the StockTrail inventory API.

It covers the item lifecycle (create, scan, status changes, history),
account administration, and server health.

Most commands need a bearer token. Log in once and export it:

  stockctl login --username admin --password ...
  export STOCKTRAIL_TOKEN=<accessToken>`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "StockTrail server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Bearer token (default: from STOCKTRAIL_TOKEN env)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(healthCmd)
}

// resolvedToken returns the effective bearer token.
// Priority: --token flag > STOCKTRAIL_TOKEN env var.
func resolvedToken() string {
	if tokenFlag != "" {
		return tokenFlag
	}
	return os.Getenv("STOCKTRAIL_TOKEN")
}
