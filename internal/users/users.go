// Package users registers accounts and manages roles and Telegram links.
package users

import (
	"civicwatch/backend/internal/apperr"
	"civicwatch/backend/internal/config"
	"civicwatch/backend/internal/models"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const maxDisplayName = 64

var (
	ErrInvalidName  = fmt.Errorf("%w: display name must be 1..%d characters", apperr.ErrInvalid, maxDisplayName)
	ErrInvalidRole  = fmt.Errorf("%w: unknown role", apperr.ErrInvalid)
	ErrTelegramUsed = fmt.Errorf("%w: telegram chat is linked to another account", apperr.ErrDuplicate)
)

type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	SetUserRole(ctx context.Context, userID string, role models.Role) error
	SetUserTelegramID(ctx context.Context, userID string, telegramID int64) error
	ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error)
}

type Service struct {
	Storage Store
	logger  *zap.Logger
}

func NewService(s Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Storage: s, logger: logger.Named("users")}
}

// Register creates a citizen account.
func (s *Service) Register(ctx context.Context, displayName, language string) (*models.User, error) {
	name := strings.TrimSpace(displayName)
	if name == "" || utf8.RuneCountInString(name) > maxDisplayName {
		return nil, ErrInvalidName
	}
	if language == "" {
		language = "en"
	}
	u := &models.User{
		DisplayName:     name,
		Role:            models.RoleCitizen,
		Language:        language,
		ReputationScore: config.InitialReputation,
	}
	if err := s.Storage.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID))
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	return s.Storage.GetUserByID(ctx, id)
}

// SetRole changes a user's role. Used by the admin CLI.
func (s *Service) SetRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if err := s.Storage.SetUserRole(ctx, id, role); err != nil {
		return nil, err
	}
	s.logger.Info("role changed", zap.String("user_id", id), zap.String("role", string(role)))
	return s.Storage.GetUserByID(ctx, id)
}

// LinkTelegram attaches the chat id shown by the bot's /start to the account.
func (s *Service) LinkTelegram(ctx context.Context, id string, chatID int64) (*models.User, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("%w: chat id is required", apperr.ErrInvalid)
	}
	if err := s.Storage.SetUserTelegramID(ctx, id, chatID); err != nil {
		if errors.Is(err, apperr.ErrDuplicate) {
			return nil, ErrTelegramUsed
		}
		return nil, err
	}
	return s.Storage.GetUserByID(ctx, id)
}

func (s *Service) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	return s.Storage.ListUsersByRole(ctx, role)
}
