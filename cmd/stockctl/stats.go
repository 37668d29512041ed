package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// statusOrder lists lifecycle statuses in the order items move through them.
var statusOrder = []string{"created", "stored", "verified", "dispatched", "closed"}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show item counts by lifecycle status",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var resp statsResponse
		if err := client.getJSON("/api/v1/stats", &resp); err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(resp)
		}

		rows := make([][]string, 0, len(statusOrder)+1)
		for _, status := range statusOrder {
			rows = append(rows, []string{status, strconv.FormatInt(resp.ByStatus[status], 10)})
		}
		rows = append(rows, []string{"total", strconv.FormatInt(resp.TotalItems, 10)})
		printTable([]string{"Status", "Items"}, rows)
		return nil
	},
}
