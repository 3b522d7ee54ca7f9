package service

import (
	"context"
	"errors"
	"time"

	"egotalk/internal/config"
	"egotalk/internal/microservices/http-api/models"
	"egotalk/internal/microservices/http-api/repository"
	"egotalk/internal/middleware/auth"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNameInUse          = errors.New("username already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Claims carried by every access token. The same token authenticates REST
// requests and the websocket handshake.
type Claims struct {
	ProfileID   string `json:"profile_id"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Register(ctx context.Context, username, password, displayName string) (*models.Profile, error)
	Login(ctx context.Context, username, password string) (accessToken string, profile *models.Profile, err error)
	ValidateToken(tokenString string) (*Claims, error)
	TokenTTL() time.Duration
}

type authService struct {
	profileRepo    repository.ProfileRepository
	jwtSecret      string
	accessTokenTTL time.Duration
}

func NewAuthService(profileRepo repository.ProfileRepository, cfg *config.Config) AuthService {
	return &authService{
		profileRepo:    profileRepo,
		jwtSecret:      cfg.JWTSecret,
		accessTokenTTL: cfg.AccessTokenTTL,
	}
}

// Register creates a new profile with the given username, password, and display name.
func (s *authService) Register(ctx context.Context, username, password, displayName string) (*models.Profile, error) {
	// Check if username exists
	if _, err := s.profileRepo.FindByUsername(ctx, username); err == nil {
		return nil, ErrNameInUse
	}

	// Hash password
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{
		Username:    username,
		DisplayName: displayName,
		Password:    hashedPassword,
	}

	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}

// Login authenticates a profile and returns an access token on success.
func (s *authService) Login(ctx context.Context, username, password string) (string, *models.Profile, error) {
	profile, err := s.profileRepo.FindByUsername(ctx, username)
	if err != nil {
		// Profile not found: dummy compare to mitigate timing attacks (always take same time)
		auth.VerifyPassword("$2a$10$7EqJtq98hPqEX7fNZaFWoOHi6VbU5h6K9v8u5rO0m3j0h6dX5r8e", password)
		return "", nil, ErrInvalidCredentials
	}

	if err := auth.VerifyPassword(profile.Password, password); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.generateAccessToken(profile)
	if err != nil {
		return "", nil, err
	}

	return token, profile, nil
}

func (s *authService) generateAccessToken(profile *models.Profile) (string, error) {
	now := time.Now()
	claims := &Claims{
		ProfileID:   profile.ID,
		DisplayName: profile.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// ValidateToken parses and verifies an access token, returning its claims.
func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.ProfileID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *authService) TokenTTL() time.Duration {
	return s.accessTokenTTL
}
