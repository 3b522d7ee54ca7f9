package command

import (
	"fmt"
	"time"

	"egotalk/cmd/cli/authentication"
	"egotalk/cmd/cli/command/client"

	"github.com/spf13/cobra"
)

// auth.go handles account commands: register, login, logout.

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Account commands",
	Long:  `Register an account, log in, or log out. Credentials are stored in the OS keyring.`,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		var req client.RegisterRequest
		req.Username, _ = cmd.Flags().GetString("username")
		req.Password, _ = cmd.Flags().GetString("password")
		req.DisplayName, _ = cmd.Flags().GetString("name")
		if req.DisplayName == "" {
			req.DisplayName = req.Username
		}

		httpClient := client.NewHTTPClient(apiURL)
		response, err := httpClient.Register(&req)
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}

		fmt.Println("✓ Registration successful! Please login to continue.")
		fmt.Printf("Profile ID: %s\n", response.ProfileID)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to your account",
	RunE: func(cmd *cobra.Command, args []string) error {
		var req client.LoginRequest
		req.Username, _ = cmd.Flags().GetString("username")
		req.Password, _ = cmd.Flags().GetString("password")

		httpClient := client.NewHTTPClient(apiURL)
		response, err := httpClient.Login(&req)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		creds := &authentication.StoredCredentials{
			AccessToken: response.AccessToken,
			ProfileID:   response.ProfileID,
			Username:    response.Username,
			DisplayName: response.DisplayName,
			ExpiresAt:   time.Now().Unix() + response.ExpiresIn,
		}
		if err := authentication.StoreTokens(creds); err != nil {
			return fmt.Errorf("could not store credentials: %w", err)
		}
		accessToken = response.AccessToken

		fmt.Printf("✓ Logged in as %s\n", response.DisplayName)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget stored credentials",
	Run: func(cmd *cobra.Command, args []string) {
		authentication.DeleteTokens()
		accessToken = ""
		fmt.Println("✓ Logged out.")
	},
}

func init() {
	authCmd.AddCommand(registerCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(authCmd)

	registerCmd.Flags().StringP("username", "u", "", "Username for the new account")
	registerCmd.Flags().StringP("password", "p", "", "Password for the new account")
	registerCmd.Flags().StringP("name", "n", "", "Display name (defaults to username)")
	registerCmd.MarkFlagRequired("username")
	registerCmd.MarkFlagRequired("password")

	loginCmd.Flags().StringP("username", "u", "", "Username for the account")
	loginCmd.Flags().StringP("password", "p", "", "Password for the account")
	loginCmd.MarkFlagRequired("username")
	loginCmd.MarkFlagRequired("password")
}
