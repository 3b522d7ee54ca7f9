package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"egotalk/internal/microservices/http-api/dto"
	"egotalk/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockChatService mocks the ChatService interface
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) ListRooms(ctx context.Context, userID string) ([]dto.RoomListItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dto.RoomListItem), args.Error(1)
}

func (m *MockChatService) CreateChat(ctx context.Context, creatorID, roomType string, memberIDs []string, title *string) (*dto.CreateChatResponse, bool, error) {
	args := m.Called(ctx, creatorID, roomType, memberIDs, title)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*dto.CreateChatResponse), args.Bool(1), args.Error(2)
}

func (m *MockChatService) RoomInfo(ctx context.Context, roomID, userID string) (*dto.RoomInfoResponse, error) {
	args := m.Called(ctx, roomID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RoomInfoResponse), args.Error(1)
}

func (m *MockChatService) GetMessages(ctx context.Context, roomID, userID string, cursor *string, limit int) (*dto.HistoryResponse, error) {
	args := m.Called(ctx, roomID, userID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.HistoryResponse), args.Error(1)
}

func (m *MockChatService) SendMessage(ctx context.Context, roomID, senderID, content string) (*dto.MessageResponse, error) {
	args := m.Called(ctx, roomID, senderID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.MessageResponse), args.Error(1)
}

func (m *MockChatService) MarkRead(ctx context.Context, roomID, userID, messageID string) (*dto.ReadResponse, error) {
	args := m.Called(ctx, roomID, userID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReadResponse), args.Error(1)
}

func (m *MockChatService) SetMute(ctx context.Context, roomID, userID string, mute bool) (*dto.MuteResponse, error) {
	args := m.Called(ctx, roomID, userID, mute)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.MuteResponse), args.Error(1)
}

func (m *MockChatService) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockChatService) DisplayName(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

const testProfileID = "11111111-1111-1111-1111-111111111111"

// setupChatRouter registers the chat routes behind a stub auth layer that
// injects the caller's profile id, the way the real middleware does.
func setupChatRouter(chatService service.ChatService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	group := router.Group("/api")
	group.Use(func(c *gin.Context) {
		c.Set("profileID", testProfileID)
		c.Next()
	})
	NewChatHandler(chatService, logger).RegisterRoutes(group)
	return router
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) dto.Envelope {
	t.Helper()
	var env dto.Envelope
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestListRooms_ReturnsEnvelope(t *testing.T) {
	mockService := new(MockChatService)
	router := setupChatRouter(mockService)

	mockService.On("ListRooms", mock.Anything, testProfileID).Return([]dto.RoomListItem{
		{RoomID: "room-1", Type: "dm", Title: "Bob", UnreadCount: 2, MemberCount: 2},
	}, nil)

	req, _ := http.NewRequest("GET", "/api/chats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)
	assert.Empty(t, env.Code)
	mockService.AssertExpectations(t)
}

func TestCreateChat_NewRoomReturns201(t *testing.T) {
	mockService := new(MockChatService)
	router := setupChatRouter(mockService)

	mockService.On("CreateChat", mock.Anything, testProfileID, "group", []string{"22222222-2222-2222-2222-222222222222"}, mock.Anything).
		Return(&dto.CreateChatResponse{RoomID: "room-1", Type: "group", CreatedAt: time.Now()}, true, nil)

	body, _ := json.Marshal(dto.CreateChatRequest{
		Type:      "group",
		MemberIDs: []string{"22222222-2222-2222-2222-222222222222"},
	})
	req, _ := http.NewRequest("POST", "/api/chats", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decodeEnvelope(t, w).Success)
}

func TestCreateChat_ExistingDMReturns200(t *testing.T) {
	mockService := new(MockChatService)
	router := setupChatRouter(mockService)

	mockService.On("CreateChat", mock.Anything, testProfileID, "dm", []string{"22222222-2222-2222-2222-222222222222"}, mock.Anything).
		Return(&dto.CreateChatResponse{RoomID: "room-1", Type: "dm"}, false, nil)

	body, _ := json.Marshal(dto.CreateChatRequest{
		Type:      "dm",
		MemberIDs: []string{"22222222-2222-2222-2222-222222222222"},
	})
	req, _ := http.NewRequest("POST", "/api/chats", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateChat_InvalidJSON(t *testing.T) {
	mockService := new(MockChatService)
	router := setupChatRouter(mockService)

	req, _ := http.NewRequest("POST", "/api/chats", bytes.NewBuffer([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "INVALID_INPUT", env.Code)
}

func TestSendMessage_Success(t *testing.T) {
	mockService := new(MockChatService)
	router := setupChatRouter(mockService)

	mockService.On("SendMessage", mock.Anything, "room-1", testProfileID, "hello").
		Return(&dto.MessageResponse{ID: "msg-1", RoomID: "room-1", Content: "hello"}, nil)

	body, _ := json.Marshal(dto.SendMessageRequest{Content: "hello"})
	req, _ := http.NewRequest("POST", "/api/chats/room-1/messages", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockService.AssertExpectations(t)
}

func TestSendMessage_NotAMemberReturns403(t *testing.T) {
	mockService := new(MockChatService)
	router := setupChatRouter(mockService)

	mockService.On("SendMessage", mock.Anything, "room-1", testProfileID, "hello").
		Return(nil, service.ErrNotAMember)

	body, _ := json.Marshal(dto.SendMessageRequest{Content: "hello"})
	req, _ := http.NewRequest("POST", "/api/chats/room-1/messages", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "NOT_A_MEMBER", decodeEnvelope(t, w).Code)
}

func TestSendMessage_TooLongReturns400(t *testing.T) {
	mockService := new(MockChatService)
	router := setupChatRouter(mockService)

	mockService.On("SendMessage", mock.Anything, "room-1", testProfileID, "x").
		Return(nil, service.ErrMessageTooLong)

	body, _ := json.Marshal(dto.SendMessageRequest{Content: "x"})
	req, _ := http.NewRequest("POST", "/api/chats/room-1/messages", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MESSAGE_TOO_LONG", decodeEnvelope(t, w).Code)
}

func TestRoomInfo_NotFoundReturns404(t *testing.T) {
	mockService := new(MockChatService)
	router := setupChatRouter(mockService)

	mockService.On("RoomInfo", mock.Anything, "room-1", testProfileID).
		Return(nil, service.ErrNotFound)

	req, _ := http.NewRequest("GET", "/api/chats/room-1/info", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, w).Code)
}

func TestHistory_PassesCursorAndLimit(t *testing.T) {
	mockService := new(MockChatService)
	router := setupChatRouter(mockService)

	cursor := "33333333-3333-3333-3333-333333333333"
	mockService.On("GetMessages", mock.Anything, "room-1", testProfileID, &cursor, 10).
		Return(&dto.HistoryResponse{Messages: []dto.MessageResponse{}}, nil)

	req, _ := http.NewRequest("GET", "/api/chats/room-1/messages?cursor="+cursor+"&limit=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestHistory_NonNumericLimitFallsBack(t *testing.T) {
	mockService := new(MockChatService)
	router := setupChatRouter(mockService)

	mockService.On("GetMessages", mock.Anything, "room-1", testProfileID, (*string)(nil), service.DefaultPageLimit).
		Return(&dto.HistoryResponse{Messages: []dto.MessageResponse{}}, nil)

	req, _ := http.NewRequest("GET", "/api/chats/room-1/messages?limit=abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestMarkRead_Success(t *testing.T) {
	mockService := new(MockChatService)
	router := setupChatRouter(mockService)

	mockService.On("MarkRead", mock.Anything, "room-1", testProfileID, "msg-1").
		Return(&dto.ReadResponse{RoomID: "room-1", ProfileID: testProfileID, LastReadMessageAt: time.Now()}, nil)

	body, _ := json.Marshal(dto.ReadRequest{LastReadMessageID: "msg-1"})
	req, _ := http.NewRequest("POST", "/api/chats/room-1/read", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetMute_FalseStillBinds(t *testing.T) {
	mockService := new(MockChatService)
	router := setupChatRouter(mockService)

	mockService.On("SetMute", mock.Anything, "room-1", testProfileID, false).
		Return(&dto.MuteResponse{RoomID: "room-1", Mute: false}, nil)

	req, _ := http.NewRequest("PATCH", "/api/chats/room-1/mute", bytes.NewBuffer([]byte(`{"mute": false}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestSetMute_MissingFieldReturns400(t *testing.T) {
	mockService := new(MockChatService)
	router := setupChatRouter(mockService)

	req, _ := http.NewRequest("PATCH", "/api/chats/room-1/mute", bytes.NewBuffer([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnexpectedErrorReturns500(t *testing.T) {
	mockService := new(MockChatService)
	router := setupChatRouter(mockService)

	mockService.On("ListRooms", mock.Anything, testProfileID).
		Return(nil, errors.New("database down"))

	req, _ := http.NewRequest("GET", "/api/chats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "INTERNAL_ERROR", env.Code)
	// Internal details must not leak to the client.
	assert.NotContains(t, env.Message, "database down")
}
