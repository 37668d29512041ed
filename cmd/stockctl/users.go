package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage accounts (admin only)",
}

func init() {
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersSetRoleCmd)
	usersCmd.AddCommand(usersActivateCmd)
	usersCmd.AddCommand(usersDeactivateCmd)
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var resp userListResponse
		if err := client.getJSON("/auth/users", &resp); err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(resp)
		}

		if len(resp.Users) == 0 {
			fmt.Println("No users found.")
			return nil
		}

		rows := make([][]string, 0, len(resp.Users))
		for _, u := range resp.Users {
			active := "yes"
			if !u.Active {
				active = "no"
			}
			rows = append(rows, []string{
				u.ID,
				u.Username,
				truncate(u.Name, 30),
				u.Role,
				active,
			})
		}
		printTable([]string{"ID", "Username", "Name", "Role", "Active"}, rows)
		return nil
	},
}

var usersSetRoleCmd = &cobra.Command{
	Use:   "set-role USER_ID ROLE",
	Short: "Change an account's role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var user userView
		err := client.patchJSON("/auth/users/"+url.PathEscape(args[0])+"/role",
			map[string]string{"role": args[1]}, &user)
		if err != nil {
			return fmt.Errorf("failed to set role: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(user)
		}

		fmt.Printf("%s is now %s\n", user.Username, user.Role)
		return nil
	},
}

var usersActivateCmd = &cobra.Command{
	Use:   "activate USER_ID",
	Short: "Reactivate an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setUserActive(args[0], true)
	},
}

var usersDeactivateCmd = &cobra.Command{
	Use:   "deactivate USER_ID",
	Short: "Deactivate an account so it can no longer log in or act",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setUserActive(args[0], false)
	},
}

func setUserActive(userID string, active bool) error {
	client := newClient()

	var user userView
	err := client.patchJSON("/auth/users/"+url.PathEscape(userID)+"/active",
		map[string]bool{"active": active}, &user)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(user)
	}

	state := "active"
	if !user.Active {
		state = "inactive"
	}
	fmt.Printf("%s is now %s\n", user.Username, state)
	return nil
}
