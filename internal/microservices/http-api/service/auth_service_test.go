package service

import (
	"context"
	"testing"
	"time"

	"egotalk/internal/config"
	"egotalk/internal/microservices/http-api/models"
	"egotalk/internal/middleware/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

func newAuthService(profiles *MockProfileRepository) AuthService {
	cfg := &config.Config{
		JWTSecret:      "test-secret-at-least-32-characters!!",
		AccessTokenTTL: time.Hour,
	}
	return NewAuthService(profiles, cfg)
}

func TestRegister_Success(t *testing.T) {
	profiles := new(MockProfileRepository)
	svc := newAuthService(profiles)

	profiles.On("FindByUsername", mock.Anything, "alice").Return(nil, gorm.ErrRecordNotFound)
	profiles.On("Create", mock.Anything, mock.AnythingOfType("*models.Profile")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Profile).ID = "profile-123"
		}).
		Return(nil)

	profile, err := svc.Register(context.Background(), "alice", "password123", "Alice")

	assert.NoError(t, err)
	assert.Equal(t, "profile-123", profile.ID)
	assert.Equal(t, "Alice", profile.DisplayName)
	// The stored password is a bcrypt hash, never the plaintext.
	assert.NotEqual(t, "password123", profile.Password)
	assert.NoError(t, auth.VerifyPassword(profile.Password, "password123"))
	profiles.AssertExpectations(t)
}

func TestRegister_UsernameInUse(t *testing.T) {
	profiles := new(MockProfileRepository)
	svc := newAuthService(profiles)

	profiles.On("FindByUsername", mock.Anything, "alice").
		Return(&models.Profile{Username: "alice"}, nil)

	_, err := svc.Register(context.Background(), "alice", "password123", "Alice")

	assert.ErrorIs(t, err, ErrNameInUse)
	profiles.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLogin_IssuesTokenWithProfileClaims(t *testing.T) {
	profiles := new(MockProfileRepository)
	svc := newAuthService(profiles)

	hash, _ := auth.HashPassword("password123")
	profiles.On("FindByUsername", mock.Anything, "alice").Return(&models.Profile{
		ID:          "profile-123",
		Username:    "alice",
		DisplayName: "Alice",
		Password:    hash,
	}, nil)

	token, profile, err := svc.Login(context.Background(), "alice", "password123")

	assert.NoError(t, err)
	assert.Equal(t, "profile-123", profile.ID)

	claims, err := svc.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "profile-123", claims.ProfileID)
	assert.Equal(t, "Alice", claims.DisplayName)
}

func TestLogin_WrongPassword(t *testing.T) {
	profiles := new(MockProfileRepository)
	svc := newAuthService(profiles)

	hash, _ := auth.HashPassword("password123")
	profiles.On("FindByUsername", mock.Anything, "alice").
		Return(&models.Profile{ID: "profile-123", Password: hash}, nil)

	_, _, err := svc.Login(context.Background(), "alice", "wrong")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownUser(t *testing.T) {
	profiles := new(MockProfileRepository)
	svc := newAuthService(profiles)

	profiles.On("FindByUsername", mock.Anything, "ghost").Return(nil, gorm.ErrRecordNotFound)

	_, _, err := svc.Login(context.Background(), "ghost", "whatever")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := newAuthService(new(MockProfileRepository))

	_, err := svc.ValidateToken("not.a.token")

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	profiles := new(MockProfileRepository)
	svc := newAuthService(profiles)

	otherCfg := &config.Config{JWTSecret: "a-different-secret-of-enough-length!", AccessTokenTTL: time.Hour}
	other := NewAuthService(profiles, otherCfg)

	hash, _ := auth.HashPassword("password123")
	profiles.On("FindByUsername", mock.Anything, "alice").
		Return(&models.Profile{ID: "profile-123", Password: hash}, nil)

	token, _, err := other.Login(context.Background(), "alice", "password123")
	assert.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
