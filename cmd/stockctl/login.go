package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and print a token pair",
	Long: `Log in with username and password and print the issued tokens.

Export the access token so later commands pick it up:

  export STOCKTRAIL_TOKEN=<accessToken>`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Account username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password (default: from STOCKTRAIL_PASSWORD env)")
	_ = loginCmd.MarkFlagRequired("username")
}

func runLogin(cmd *cobra.Command, args []string) error {
	password := loginPassword
	if password == "" {
		password = os.Getenv("STOCKTRAIL_PASSWORD")
	}
	if password == "" {
		return fmt.Errorf("a password is required (use --password or STOCKTRAIL_PASSWORD)")
	}

	client := newClient()

	var resp tokenPairResponse
	err := client.postJSON("/auth/login", map[string]string{
		"username": loginUsername,
		"password": password,
	}, &resp)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(resp)
	}

	if resp.User != nil {
		fmt.Printf("Logged in as %s (%s)\n", resp.User.Username, resp.User.Role)
	}
	fmt.Printf("Access token (expires %s):\n%s\n", resp.ExpiresAt, resp.AccessToken)
	fmt.Printf("Refresh token:\n%s\n", resp.RefreshToken)
	return nil
}
