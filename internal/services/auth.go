package services

import (
	"context"
	"errors"
	"time"

	"github.com/coyote/taskboard/internal/apperr"
	"github.com/coyote/taskboard/internal/models"
	"github.com/coyote/taskboard/internal/utils"
)

// AuthService is the credential boundary: it issues bearer tokens for
// valid passwords and resolves tokens back to users.
type AuthService struct {
	users  *UserService
	tokens *utils.TokenManager
}

func NewAuthService(users *UserService, tokens *utils.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

type LoginRequest struct {
	Email    string `json:"email" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpireAt    time.Time `json:"expire_at"`
}

var loginStatuses = []models.UserStatus{models.UserActive, models.UserPassive}

// Login checks the password of an active or passive user. Unknown users
// and wrong passwords are indistinguishable; passive users get
// ErrInactiveUser only after the password matched.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, email, loginStatuses...)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(password, user.PasswordHash) {
		return nil, apperr.ErrInvalidCredentials
	}
	if user.Status != models.UserActive {
		return nil, apperr.ErrInactiveUser
	}

	token, expireAt, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{AccessToken: token, TokenType: "bearer", ExpireAt: expireAt}, nil
}

// Authenticate verifies token and returns its active user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInvalidToken, err)
	}

	user, err := s.users.GetByID(ctx, claims.UserID, loginStatuses...)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return nil, apperr.ErrInvalidToken
		}
		return nil, err
	}
	if user.Email != claims.Email {
		return nil, apperr.ErrInvalidToken
	}
	if user.Status != models.UserActive {
		return nil, apperr.ErrInactiveUser
	}
	return user, nil
}
