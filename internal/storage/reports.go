package storage

import (
	"civicwatch/backend/internal/models"
	"context"
	"time"
)

func (s *Service) CreateReport(ctx context.Context, r *models.Report) error {
	if r.Status == "" {
		r.Status = models.ReportNew
	}
	// uniq_reports_open admits one new report per reporter and complaint.
	return notFound(s.DB.WithContext(ctx).Create(r).Error)
}

func (s *Service) GetReportByID(ctx context.Context, id uint) (*models.Report, error) {
	var r models.Report
	if err := s.DB.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// HasOpenReport перевіряє, чи є вже необроблена скарга від цього користувача.
func (s *Service) HasOpenReport(ctx context.Context, complaintID, reporterID string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Report{}).
		Where("complaint_id = ? AND reporter_id = ? AND status = ?", complaintID, reporterID, models.ReportNew).
		Count(&count).Error
	return count > 0, err
}

func (s *Service) CountReportsSince(ctx context.Context, reporterID string, since time.Time) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Report{}).
		Where("reporter_id = ? AND created_at > ?", reporterID, since).
		Count(&count).Error
	return count, err
}

// UpdateReportStatus closes a report that is still new. A report reviewed in
// the meantime yields ErrConflict.
func (s *Service) UpdateReportStatus(ctx context.Context, id uint, status models.ReportStatus) error {
	res := s.DB.WithContext(ctx).Model(&models.Report{}).
		Where("id = ? AND status = ?", id, models.ReportNew).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.Report{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}
