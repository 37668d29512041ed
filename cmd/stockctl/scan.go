package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan CODE STATUS",
	Short: "Apply a scanner transition by item code",
	Long: `Apply a transition the way a handheld scanner would: the item is looked
up by its printed code and moved to the requested status.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var resp transitionResponse
		err := client.postJSON("/api/v1/scan", map[string]string{
			"code":   args[0],
			"status": args[1],
		}, &resp)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(resp)
		}

		fmt.Printf("%s: %s -> %s\n", resp.Item.Code, resp.Event.FromStatus, resp.Event.ToStatus)
		return nil
	},
}
