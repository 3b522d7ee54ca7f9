package client

// REST client for the EgoTalk API. Every endpoint responds with the same
// envelope; doRequest unwraps it and surfaces the server's error code.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Code    string          `json:"code,omitempty"`
}

// Request/response structures, matching the server's JSON shapes.

type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type RegisterResponse struct {
	ProfileID   string `json:"profile_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
	ProfileID   string `json:"profile_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	ExpiresIn   int64  `json:"expires_in"`
}

type MessageResponse struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

type LastMessagePreview struct {
	Content    string    `json:"content"`
	SenderName string    `json:"sender_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type RoomListItem struct {
	RoomID      string              `json:"room_id"`
	Type        string              `json:"type"`
	Title       string              `json:"title"`
	LastMessage *LastMessagePreview `json:"last_message,omitempty"`
	UnreadCount int64               `json:"unread_count"`
	MemberCount int64               `json:"member_count"`
}

type CreateChatRequest struct {
	Type      string   `json:"type"`
	MemberIDs []string `json:"member_ids"`
	Title     *string  `json:"title,omitempty"`
}

type CreateChatResponse struct {
	RoomID    string    `json:"room_id"`
	Type      string    `json:"type"`
	Title     *string   `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type RoomInfoResponse struct {
	RoomID      string   `json:"room_id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	MemberNames []string `json:"member_names"`
	MemberCount int64    `json:"member_count"`
}

type HistoryResponse struct {
	Messages   []MessageResponse `json:"messages"`
	NextCursor *string           `json:"next_cursor,omitempty"`
	HasMore    bool              `json:"has_more"`
}

type ReadResponse struct {
	RoomID            string    `json:"room_id"`
	ProfileID         string    `json:"profile_id"`
	LastReadMessageAt time.Time `json:"last_read_message_at"`
}

type MuteResponse struct {
	RoomID string `json:"room_id"`
	Mute   bool   `json:"mute"`
}

func NewHTTPClient(apiURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: apiURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

// doRequest sends one request and decodes the envelope into out (when out is
// non-nil). Server-side failures become errors carrying the envelope's code.
func (c *HTTPClient) doRequest(method, path string, body any, out any) error {
	var reader *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewBuffer(jsonData)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("request failed with status %s", resp.Status)
	}
	if !env.Success {
		if env.Code != "" {
			return fmt.Errorf("%s: %s", env.Code, env.Message)
		}
		return fmt.Errorf("request failed: %s", env.Message)
	}
	if out != nil && env.Data != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func (c *HTTPClient) Register(request *RegisterRequest) (*RegisterResponse, error) {
	var result RegisterResponse
	if err := c.doRequest("POST", "/api/auth/register", request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) Login(request *LoginRequest) (*AuthResponse, error) {
	var result AuthResponse
	if err := c.doRequest("POST", "/api/auth/login", request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) ListRooms() ([]RoomListItem, error) {
	var result []RoomListItem
	if err := c.doRequest("GET", "/api/chats", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *HTTPClient) CreateChat(request *CreateChatRequest) (*CreateChatResponse, error) {
	var result CreateChatResponse
	if err := c.doRequest("POST", "/api/chats", request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) RoomInfo(roomID string) (*RoomInfoResponse, error) {
	var result RoomInfoResponse
	if err := c.doRequest("GET", "/api/chats/"+roomID+"/info", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMessages fetches one history page. Pass a nil cursor for the newest page.
func (c *HTTPClient) GetMessages(roomID string, cursor *string, limit int) (*HistoryResponse, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if cursor != nil {
		query.Set("cursor", *cursor)
	}

	var result HistoryResponse
	path := "/api/chats/" + roomID + "/messages?" + query.Encode()
	if err := c.doRequest("GET", path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) SendMessage(roomID, content string) (*MessageResponse, error) {
	var result MessageResponse
	body := map[string]string{"content": content}
	if err := c.doRequest("POST", "/api/chats/"+roomID+"/messages", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) MarkRead(roomID, lastReadMessageID string) (*ReadResponse, error) {
	var result ReadResponse
	body := map[string]string{"last_read_message_id": lastReadMessageID}
	if err := c.doRequest("POST", "/api/chats/"+roomID+"/read", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) SetMute(roomID string, mute bool) (*MuteResponse, error) {
	var result MuteResponse
	body := map[string]bool{"mute": mute}
	if err := c.doRequest("PATCH", "/api/chats/"+roomID+"/mute", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
