package handler

import (
	"net/http"

	"egotalk/internal/microservices/http-api/dto"
	"egotalk/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRoutes registers authentication routes (no auth middleware)
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}
}

// Register creates a new profile
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Envelope{
			Success: false,
			Message: err.Error(),
			Code:    "INVALID_INPUT",
		})
		return
	}

	profile, err := h.authService.Register(c.Request.Context(), req.Username, req.Password, req.DisplayName)
	if err != nil {
		if err == service.ErrNameInUse {
			c.JSON(http.StatusConflict, dto.Envelope{
				Success: false,
				Message: "username already in use",
				Code:    "INVALID_INPUT",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.Envelope{
			Success: false,
			Message: "Internal server error",
			Code:    "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusCreated, dto.Envelope{
		Success: true,
		Data: gin.H{
			"profile_id":   profile.ID,
			"username":     profile.Username,
			"display_name": profile.DisplayName,
		},
	})
}

// Login authenticates a profile and issues an access token
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Envelope{
			Success: false,
			Message: err.Error(),
			Code:    "INVALID_INPUT",
		})
		return
	}

	token, profile, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if err == service.ErrInvalidCredentials {
			c.JSON(http.StatusUnauthorized, dto.Envelope{
				Success: false,
				Message: "invalid credentials",
				Code:    "UNAUTHORIZED",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.Envelope{
			Success: false,
			Message: "Internal server error",
			Code:    "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, dto.Envelope{
		Success: true,
		Data: dto.AuthResponse{
			AccessToken: token,
			ProfileID:   profile.ID,
			Username:    profile.Username,
			DisplayName: profile.DisplayName,
			ExpiresIn:   int64(h.authService.TokenTTL().Seconds()),
		},
	})
}
