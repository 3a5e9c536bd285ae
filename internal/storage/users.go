package storage

import (
	"civicwatch/backend/internal/models"
	"context"

	"gorm.io/gorm"
)

// CreateUser зберігає нового користувача.
func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	return notFound(s.DB.WithContext(ctx).Create(user).Error)
}

func (s *Service) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Service) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "telegram_id = ?", telegramID).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// SetUserRole writes only the role column, leaving reputation and language
// updates made in the meantime intact.
func (s *Service) SetUserRole(ctx context.Context, userID string, role models.Role) error {
	return s.updateUserColumn(ctx, userID, "role", role)
}

// SetUserTelegramID links a chat; a chat linked to someone else yields ErrDuplicate.
func (s *Service) SetUserTelegramID(ctx context.Context, userID string, telegramID int64) error {
	return s.updateUserColumn(ctx, userID, "telegram_id", telegramID)
}

func (s *Service) updateUserColumn(ctx context.Context, userID, column string, value any) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update(column, value)
	if res.Error != nil {
		return notFound(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUserReputation змінює репутацію на change, не опускаючи її нижче нуля.
func (s *Service) UpdateUserReputation(ctx context.Context, userID string, change int) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("reputation_score", gorm.Expr("GREATEST(reputation_score + ?, 0)", change))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) UpdateUserLanguage(ctx context.Context, telegramID int64, languageCode string) error {
	return s.DB.WithContext(ctx).Model(&models.User{}).
		Where("telegram_id = ?", telegramID).
		Update("language", languageCode).Error
}

func (s *Service) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	var users []models.User
	err := s.DB.WithContext(ctx).Where("role = ?", role).Order("created_at asc").Find(&users).Error
	return users, err
}
