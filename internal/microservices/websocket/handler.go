package websocket

import (
	"log/slog"
	"net/http"
	"strings"

	"egotalk/internal/microservices/http-api/dto"
	"egotalk/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// HTTP upgrade handler to WebSocket connections

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// allow all origins for development purpose; can restrict later
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler authenticates the handshake and upgrades to WebSocket. The
// bearer token comes from the Authorization header, or from the `token`
// query parameter for browser clients that cannot set headers on a
// websocket dial. Connections that fail verification are rejected before
// any event is processed.
func WSHandler(hub *Hub, gateway *Gateway, authService service.AuthService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, dto.Envelope{
				Success: false,
				Message: "authentication required",
				Code:    "UNAUTHORIZED",
			})
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, dto.Envelope{
				Success: false,
				Message: "invalid or expired token",
				Code:    "UNAUTHORIZED",
			})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Error("websocket upgrade failed",
				"profile_id", claims.ProfileID, "error", err)
			return
		}

		client := NewClient(claims.ProfileID, claims.DisplayName, conn, hub, gateway, logger)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.Split(header, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
