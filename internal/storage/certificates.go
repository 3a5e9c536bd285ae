package storage

import (
	"civicwatch/backend/internal/models"
	"context"

	"gorm.io/gorm/clause"
)

// SaveCertificate keeps the first certificate stored for a complaint.
func (s *Service) SaveCertificate(ctx context.Context, c *models.Certificate) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(c).Error
}

func (s *Service) GetCertificate(ctx context.Context, complaintID string) (*models.Certificate, error) {
	var c models.Certificate
	if err := s.DB.WithContext(ctx).First(&c, "complaint_id = ?", complaintID).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}
