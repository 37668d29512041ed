package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Manage inventory items",
}

var (
	itemsStatusFilter string
	itemsQueryFilter  string
	itemsPageSize     int
	itemsPageToken    string
	itemCreateLabel   string
)

func init() {
	itemsListCmd.Flags().StringVar(&itemsStatusFilter, "status", "", "Filter by lifecycle status")
	itemsListCmd.Flags().StringVar(&itemsQueryFilter, "query", "", "Filter by label substring")
	itemsListCmd.Flags().IntVar(&itemsPageSize, "page-size", 0, "Items per page")
	itemsListCmd.Flags().StringVar(&itemsPageToken, "page-token", "", "Page token from a previous response")

	itemsCreateCmd.Flags().StringVar(&itemCreateLabel, "label", "", "Human-readable label for the new item")
	_ = itemsCreateCmd.MarkFlagRequired("label")

	itemsCmd.AddCommand(itemsListCmd)
	itemsCmd.AddCommand(itemsGetCmd)
	itemsCmd.AddCommand(itemsCreateCmd)
	itemsCmd.AddCommand(itemsSetStatusCmd)
	itemsCmd.AddCommand(itemsHistoryCmd)
	itemsCmd.AddCommand(itemsTransitionsCmd)
}

var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List inventory items",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		params := url.Values{}
		if itemsStatusFilter != "" {
			params.Set("status", itemsStatusFilter)
		}
		if itemsQueryFilter != "" {
			params.Set("q", itemsQueryFilter)
		}
		if itemsPageSize > 0 {
			params.Set("pageSize", strconv.Itoa(itemsPageSize))
		}
		if itemsPageToken != "" {
			params.Set("pageToken", itemsPageToken)
		}

		path := "/api/v1/items"
		if len(params) > 0 {
			path += "?" + params.Encode()
		}

		var resp itemListResponse
		if err := client.getJSON(path, &resp); err != nil {
			return fmt.Errorf("failed to list items: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(resp)
		}

		if len(resp.Items) == 0 {
			fmt.Println("No items found.")
			return nil
		}

		rows := make([][]string, 0, len(resp.Items))
		for _, it := range resp.Items {
			rows = append(rows, itemRow(it))
		}
		printTable(itemHeaders, rows)

		fmt.Printf("\nShowing %d of %d item(s)\n", len(resp.Items), resp.TotalSize)
		if resp.NextPageToken != "" {
			fmt.Printf("Next page: --page-token %s\n", resp.NextPageToken)
		}
		return nil
	},
}

var itemsGetCmd = &cobra.Command{
	Use:   "get REF",
	Short: "Show one item by code or id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var item itemView
		if err := client.getJSON("/api/v1/items/"+url.PathEscape(args[0]), &item); err != nil {
			return fmt.Errorf("failed to get item: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(item)
		}

		printTable([]string{"Field", "Value"}, [][]string{
			{"ID", item.ID},
			{"Code", item.Code},
			{"Label", item.Label},
			{"Status", item.Status},
			{"Created", item.CreatedAt.Format(time.RFC3339)},
			{"Updated", item.UpdatedAt.Format(time.RFC3339)},
		})
		return nil
	},
}

var itemsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new item",
	Long:  `Register a new item. It starts in status "created" with a freshly minted code.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var item itemView
		err := client.postJSON("/api/v1/items", map[string]string{"label": itemCreateLabel}, &item)
		if err != nil {
			return fmt.Errorf("failed to create item: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(item)
		}

		fmt.Printf("Created %s (%s)\n", item.Code, item.Status)
		return nil
	},
}

var itemsSetStatusCmd = &cobra.Command{
	Use:   "set-status REF STATUS",
	Short: "Move an item to a new lifecycle status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var resp transitionResponse
		err := client.postJSON("/api/v1/items/"+url.PathEscape(args[0])+"/status",
			map[string]string{"status": args[1]}, &resp)
		if err != nil {
			return fmt.Errorf("transition failed: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(resp)
		}

		fmt.Printf("%s: %s -> %s\n", resp.Item.Code, resp.Event.FromStatus, resp.Event.ToStatus)
		return nil
	},
}

var itemsHistoryCmd = &cobra.Command{
	Use:   "history REF",
	Short: "Show an item's transition history, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var resp historyResponse
		if err := client.getJSON("/api/v1/items/"+url.PathEscape(args[0])+"/history", &resp); err != nil {
			return fmt.Errorf("failed to get history: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(resp)
		}

		fmt.Printf("%s (%s)\n\n", resp.Item.Code, resp.Item.Status)
		if len(resp.Events) == 0 {
			fmt.Println("No transitions recorded.")
			return nil
		}

		rows := make([][]string, 0, len(resp.Events))
		for _, ev := range resp.Events {
			rows = append(rows, []string{
				ev.CreatedAt.Format("2006-01-02 15:04:05"),
				ev.FromStatus,
				ev.ToStatus,
				ev.ActorID,
				ev.Action,
			})
		}
		printTable([]string{"When", "From", "To", "Actor", "Action"}, rows)
		return nil
	},
}

var itemsTransitionsCmd = &cobra.Command{
	Use:   "transitions REF",
	Short: "Show the statuses your role may move an item to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var resp allowedTransitionsResponse
		if err := client.getJSON("/api/v1/items/"+url.PathEscape(args[0])+"/transitions", &resp); err != nil {
			return fmt.Errorf("failed to get transitions: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(resp)
		}

		if len(resp.AllowedTransitions) == 0 {
			fmt.Printf("%s is %s; role %s may not move it anywhere.\n",
				resp.Item.Code, resp.Item.Status, resp.Role)
			return nil
		}
		fmt.Printf("%s is %s; role %s may move it to: %s\n",
			resp.Item.Code, resp.Item.Status, resp.Role, strings.Join(resp.AllowedTransitions, ", "))
		return nil
	},
}
