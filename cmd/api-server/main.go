package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"egotalk/database"
	"egotalk/internal/config"
	"egotalk/internal/microservices/http-api/handler"
	"egotalk/internal/microservices/http-api/middleware"
	"egotalk/internal/microservices/http-api/repository"
	"egotalk/internal/microservices/http-api/service"
	"egotalk/internal/microservices/websocket"
	"egotalk/internal/push"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		logger.Error("could not connect to database", "error", err)
		os.Exit(1)
	}

	dispatcher, err := push.NewDispatcher(cfg.RedisURL, cfg.RedisPassword, cfg.PushQueueKey, logger)
	if err != nil {
		logger.Error("could not connect to redis", "error", err)
		os.Exit(1)
	}
	defer dispatcher.Close()

	// Repositories
	roomRepo := repository.NewChatRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	// Realtime hub doubles as the service's broadcaster.
	hub := websocket.NewHub(logger)

	// Services
	authService := service.NewAuthService(profileRepo, cfg)
	chatService := service.NewChatService(roomRepo, messageRepo, profileRepo, hub, dispatcher, logger)

	gateway := websocket.NewGateway(chatService, hub, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	authHandler := handler.NewAuthHandler(authService)
	authHandler.RegisterRoutes(api)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(authService))
	protected.Use(limiter.Middleware())

	chatHandler := handler.NewChatHandler(chatService, logger)
	chatHandler.RegisterRoutes(protected)

	// Handshake auth happens inside WSHandler (header or ?token=), so the
	// route stays outside the middleware chain.
	r.GET("/ws", websocket.WSHandler(hub, gateway, authService, logger))

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	logger.Info("api server listening", "addr", addr, "env", cfg.GoEnv)
	if err := r.Run(addr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(h)
}
