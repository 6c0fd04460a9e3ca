package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coyote/taskboard/internal/apperr"
	"github.com/coyote/taskboard/internal/config"
	"github.com/coyote/taskboard/internal/models"
	"github.com/coyote/taskboard/internal/notify"
	"github.com/coyote/taskboard/internal/utils"
	"github.com/coyote/taskboard/pkg/logger"
	"gorm.io/gorm"
)

// UserService owns user records and the verification code lifecycle.
type UserService struct {
	db    *gorm.DB
	cfg   config.VerificationConfig
	queue TaskQueue
	now   func() time.Time
}

func NewUserService(db *gorm.DB, cfg config.VerificationConfig, queue TaskQueue) *UserService {
	return &UserService{db: db, cfg: cfg, queue: queue, now: time.Now}
}

type RegisterRequest struct {
	FirstName string `json:"first_name" binding:"required,max=50"`
	LastName  string `json:"last_name" binding:"required,max=50"`
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,min=6"`
}

type EmailVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

type PasswordResetRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Code     string `json:"code" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// Register creates an active, unverified user and mails the activation
// code. A failed hand-off of the mail is logged; the user is still created.
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	email := strings.TrimSpace(req.Email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, apperr.ErrUserExists
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	code, err := s.newCode()
	if err != nil {
		return nil, err
	}

	user := models.User{
		FirstName:                 req.FirstName,
		LastName:                  req.LastName,
		Email:                     email,
		VerificationCode:          code,
		VerificationCodeExpiresAt: s.now().Add(s.cfg.CodeTTL),
		PasswordHash:              hash,
		Status:                    models.UserActive,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Wrap(apperr.ErrUserExists, err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.notify(ctx, &notify.Message{
		Template:  notify.TemplateAccountActivation,
		Subject:   "Activate your account",
		Recipient: user.Email,
		Variables: map[string]interface{}{"code": code},
	})

	return &user, nil
}

// GetByID loads a user whose status is in statuses (active when empty).
func (s *UserService) GetByID(ctx context.Context, id uint, statuses ...models.UserStatus) (*models.User, error) {
	return s.get(ctx, "id = ?", id, statuses)
}

// GetByEmail loads a user whose status is in statuses (active when empty).
func (s *UserService) GetByEmail(ctx context.Context, email string, statuses ...models.UserStatus) (*models.User, error) {
	return s.get(ctx, "email = ?", email, statuses)
}

func (s *UserService) get(ctx context.Context, cond string, arg interface{}, statuses []models.UserStatus) (*models.User, error) {
	if len(statuses) == 0 {
		statuses = []models.UserStatus{models.UserActive}
	}

	var user models.User
	err := s.db.WithContext(ctx).Where(cond, arg).Where("status IN ?", statuses).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// VerifyEmail marks the address verified when code matches and is unexpired.
func (s *UserService) VerifyEmail(ctx context.Context, email, code string) error {
	user, err := s.checkCode(ctx, email, code)
	if err != nil {
		return err
	}

	now := s.now()
	return s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"email_verified":    true,
		"email_verified_at": now,
	}).Error
}

// SendPasswordReset issues a fresh code and mails it.
func (s *UserService) SendPasswordReset(ctx context.Context, email string) error {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	code, err := s.newCode()
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"verification_code":            code,
		"verification_code_expires_at": s.now().Add(s.cfg.CodeTTL),
	}).Error
	if err != nil {
		return fmt.Errorf("store reset code: %w", err)
	}

	s.notify(ctx, &notify.Message{
		Template:  notify.TemplatePasswordReset,
		Subject:   "Password reset",
		Recipient: user.Email,
		Variables: map[string]interface{}{"code": code},
	})
	return nil
}

// ResetPassword replaces the password when code matches and is unexpired.
func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	user, err := s.checkCode(ctx, email, code)
	if err != nil {
		return err
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.db.WithContext(ctx).Model(user).Update("password_hash", hash).Error
}

// checkCode validates expiry before the code itself.
func (s *UserService) checkCode(ctx context.Context, email, code string) (*models.User, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.VerificationCodeExpiresAt.After(s.now()) {
		return nil, apperr.ErrVerificationExpired
	}
	if user.VerificationCode != code {
		return nil, apperr.ErrVerificationCode
	}
	return user, nil
}

func (s *UserService) newCode() (string, error) {
	if s.cfg.DeveloperMode {
		return s.cfg.TestCode, nil
	}
	code, err := utils.GenerateCode(s.cfg.CodeLength)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return code, nil
}

func (s *UserService) notify(ctx context.Context, msg *notify.Message) {
	if err := enqueueNotification(ctx, s.queue, msg); err != nil {
		logger.Warn().Err(err).Str("template", msg.Template).Msg("[User] notification not enqueued")
	}
}
