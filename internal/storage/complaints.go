package storage

import (
	"civicwatch/backend/internal/models"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BoundingBox limits a listing to a map viewport.
type BoundingBox struct {
	MinLat, MinLng float64
	MaxLat, MaxLng float64
}

// ComplaintFilter narrows ListComplaints. Zero values mean "any".
type ComplaintFilter struct {
	Status        models.ComplaintStatus
	Category      string
	AuthorID      string
	Box           *BoundingBox
	IncludeHidden bool
	Before        time.Time
	Limit         int
}

// CreateComplaint зберігає скаргу разом з медіа. Дубль client_ref дає ErrDuplicate.
func (s *Service) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	return notFound(s.DB.WithContext(ctx).Create(c).Error)
}

func (s *Service) GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error) {
	var c models.Complaint
	if err := s.DB.WithContext(ctx).Preload("Media").First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Service) GetComplaintByClientRef(ctx context.Context, ref string) (*models.Complaint, error) {
	var c models.Complaint
	if err := s.DB.WithContext(ctx).Preload("Media").First(&c, "client_ref = ?", ref).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// GetComplaintsByIDs returns the complaints in the order of ids, skipping missing and hidden ones.
func (s *Service) GetComplaintsByIDs(ctx context.Context, ids []string) ([]models.Complaint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []models.Complaint
	if err := s.DB.WithContext(ctx).Preload("Media").
		Where("id IN ? AND hidden = ?", ids, false).
		Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]models.Complaint, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	out := make([]models.Complaint, 0, len(found))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) ListComplaints(ctx context.Context, f ComplaintFilter) ([]models.Complaint, error) {
	q := s.DB.WithContext(ctx).Model(&models.Complaint{}).Preload("Media")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.AuthorID != "" {
		q = q.Where("author_id = ?", f.AuthorID)
	}
	if !f.IncludeHidden {
		q = q.Where("hidden = ?", false)
	}
	if b := f.Box; b != nil {
		q = q.Where("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?", b.MinLat, b.MaxLat, b.MinLng, b.MaxLng)
	}
	if !f.Before.IsZero() {
		q = q.Where("created_at < ?", f.Before)
	}

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var out []models.Complaint
	err := q.Order("created_at desc").Find(&out).Error
	return out, err
}

func (s *Service) DeleteComplaint(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&models.ComplaintMedia{}, &models.Comment{}, &models.Like{}, &models.Report{}, &models.StatusChange{}} {
			if err := tx.Where("complaint_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&models.Complaint{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// TransitionStatus moves a complaint from change.From to change.To and records
// the audit row in one transaction. The update only applies while the stored
// status still equals change.From; otherwise ErrConflict is returned.
func (s *Service) TransitionStatus(ctx context.Context, change *models.StatusChange) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     change.To,
			"updated_at": time.Now(),
		}
		if change.To.Terminal() {
			updates["resolved_at"] = time.Now()
		}

		res := tx.Model(&models.Complaint{}).
			Where("id = ? AND status = ?", change.ComplaintID, change.From).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Complaint{}).Where("id = ?", change.ComplaintID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrConflict
		}
		return tx.Create(change).Error
	})
}

func (s *Service) GetStatusHistory(ctx context.Context, complaintID string) ([]models.StatusChange, error) {
	var history []models.StatusChange
	err := s.DB.WithContext(ctx).Where("complaint_id = ?", complaintID).Order("created_at asc").Find(&history).Error
	return history, err
}

// AdjustFlagScore adds delta to the complaint's flag score and sets hidden
// according to hideThreshold. Returns the resulting hidden flag.
func (s *Service) AdjustFlagScore(ctx context.Context, complaintID string, delta, hideThreshold int) (bool, error) {
	var c models.Complaint
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, "id = ?", complaintID).Error; err != nil {
			return err
		}
		c.FlagScore += delta
		if c.FlagScore < 0 {
			c.FlagScore = 0
		}
		c.Hidden = c.FlagScore >= hideThreshold
		return tx.Model(&c).Updates(map[string]interface{}{"flag_score": c.FlagScore, "hidden": c.Hidden}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, ErrNotFound
	}
	return c.Hidden, err
}
