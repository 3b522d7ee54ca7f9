package command

import (
	"fmt"
	"strings"

	"egotalk/cmd/cli/authentication"
	c "egotalk/cmd/cli/command/client"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat room commands",
	Long:  `List your rooms, start new conversations, and join a room for a live session.`,
}

var chatListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your chat rooms",
	RunE: func(cmd *cobra.Command, args []string) error {
		httpClient, err := authedClient()
		if err != nil {
			return err
		}

		rooms, err := httpClient.ListRooms()
		if err != nil {
			return fmt.Errorf("could not list rooms: %w", err)
		}
		if len(rooms) == 0 {
			fmt.Println("No chat rooms yet. Start one with 'egotalk chat new'.")
			return nil
		}

		for _, room := range rooms {
			unread := ""
			if room.UnreadCount > 0 {
				unread = color.RedString(" (%d unread)", room.UnreadCount)
			}
			color.Cyan("%s  [%s, %d members]%s", room.Title, room.Type, room.MemberCount, unread)
			fmt.Printf("  id: %s\n", room.RoomID)
			if room.LastMessage != nil {
				fmt.Printf("  %s: %s\n", room.LastMessage.SenderName, room.LastMessage.Content)
			}
		}
		return nil
	},
}

var chatNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new dm or group chat",
	RunE: func(cmd *cobra.Command, args []string) error {
		httpClient, err := authedClient()
		if err != nil {
			return err
		}

		roomType, _ := cmd.Flags().GetString("type")
		members, _ := cmd.Flags().GetString("members")
		title, _ := cmd.Flags().GetString("title")

		req := c.CreateChatRequest{
			Type:      roomType,
			MemberIDs: strings.Split(members, ","),
		}
		if title != "" {
			req.Title = &title
		}

		room, err := httpClient.CreateChat(&req)
		if err != nil {
			return fmt.Errorf("could not create chat: %w", err)
		}

		fmt.Println("✓ Chat ready.")
		fmt.Printf("Room ID: %s\n", room.RoomID)
		return nil
	},
}

var chatInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show a room's members",
	RunE: func(cmd *cobra.Command, args []string) error {
		httpClient, err := authedClient()
		if err != nil {
			return err
		}

		roomID, _ := cmd.Flags().GetString("room")
		info, err := httpClient.RoomInfo(roomID)
		if err != nil {
			return fmt.Errorf("could not load room: %w", err)
		}

		color.Cyan("%s [%s]", info.Title, info.Type)
		fmt.Printf("Members (%d): %s\n", info.MemberCount, strings.Join(info.MemberNames, ", "))
		return nil
	},
}

var chatJoinCmd = &cobra.Command{
	Use:   "join",
	Short: "Open a room for a live session",
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID, _ := cmd.Flags().GetString("room")

		creds, err := authentication.GetTokens()
		if err != nil || creds.AccessToken == "" {
			return fmt.Errorf("not logged in, please run 'egotalk auth login' first")
		}
		token := accessToken
		if token == "" {
			token = creds.AccessToken
		}

		return c.JoinChatRoom(apiURL, roomID, token, creds.ProfileID, creds.DisplayName)
	},
}

// authedClient returns a REST client carrying the stored (or flag-provided)
// access token.
func authedClient() (*c.HTTPClient, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("not logged in, please run 'egotalk auth login' first or provide --token")
	}
	httpClient := c.NewHTTPClient(apiURL)
	httpClient.SetToken(accessToken)
	return httpClient, nil
}

func init() {
	chatCmd.AddCommand(chatListCmd)
	chatCmd.AddCommand(chatNewCmd)
	chatCmd.AddCommand(chatInfoCmd)
	chatCmd.AddCommand(chatJoinCmd)
	rootCmd.AddCommand(chatCmd)

	chatNewCmd.Flags().StringP("type", "t", "dm", "Room type: dm or group")
	chatNewCmd.Flags().StringP("members", "m", "", "Comma-separated profile IDs to invite (required)")
	chatNewCmd.Flags().String("title", "", "Room title (group chats only)")
	chatNewCmd.MarkFlagRequired("members")

	chatInfoCmd.Flags().StringP("room", "r", "", "Room ID (required)")
	chatInfoCmd.MarkFlagRequired("room")

	chatJoinCmd.Flags().StringP("room", "r", "", "Room ID (required)")
	chatJoinCmd.MarkFlagRequired("room")
}
