package command

// root.go defines the root command for the egotalk CLI.
// Global flags and shared state live here.

import (
	"fmt"
	"os"

	"egotalk/cmd/cli/authentication"

	"github.com/spf13/cobra"
)

var (
	apiURL      string // global flag for the API server URL
	accessToken string // loaded from the keyring, or set via --token
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "egotalk",
	Short: "egotalk - realtime chat from the terminal",
	Long: `egotalk is a terminal client for the EgoTalk chat server. It can:
- Register and log in to an account
- List your chat rooms with unread counts
- Open a room for a live conversation over WebSocket

Use "egotalk <command> -h" to see the flags for each command.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "http://localhost:8084", "API server URL")
	rootCmd.PersistentFlags().StringVar(&accessToken, "token", "", "access token (overrides stored credentials)")

	cobra.OnInitialize(loadStoredToken)
}

func loadStoredToken() {
	if accessToken != "" {
		return
	}
	if creds, err := authentication.GetTokens(); err == nil {
		accessToken = creds.AccessToken
	}
}
