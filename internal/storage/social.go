package storage

import (
	"civicwatch/backend/internal/models"
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddLike records a like once per user and keeps likes_count in step.
// The bool result is false when the like already existed.
func (s *Service) AddLike(ctx context.Context, complaintID, userID string) (bool, error) {
	created := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Like{ComplaintID: complaintID, UserID: userID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		return tx.Model(&models.Complaint{}).Where("id = ?", complaintID).
			Update("likes_count", gorm.Expr("likes_count + 1")).Error
	})
	return created, err
}

func (s *Service) RemoveLike(ctx context.Context, complaintID, userID string) (bool, error) {
	removed := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("complaint_id = ? AND user_id = ?", complaintID, userID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return tx.Model(&models.Complaint{}).Where("id = ?", complaintID).
			Update("likes_count", gorm.Expr("GREATEST(likes_count - 1, 0)")).Error
	})
	return removed, err
}

func (s *Service) AddComment(ctx context.Context, c *models.Comment) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return tx.Model(&models.Complaint{}).Where("id = ?", c.ComplaintID).
			Update("comments_count", gorm.Expr("comments_count + 1")).Error
	})
}

func (s *Service) GetCommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	var c models.Comment
	if err := s.DB.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// ListComments повертає коментарі від найстаріших до найновіших.
func (s *Service) ListComments(ctx context.Context, complaintID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.DB.WithContext(ctx).Where("complaint_id = ?", complaintID).Order("created_at asc").Find(&comments).Error
	return comments, err
}

func (s *Service) DeleteComment(ctx context.Context, c *models.Comment) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(c).Error; err != nil {
			return err
		}
		return tx.Model(&models.Complaint{}).Where("id = ?", c.ComplaintID).
			Update("comments_count", gorm.Expr("GREATEST(comments_count - 1, 0)")).Error
	})
}

func (s *Service) AddFollow(ctx context.Context, followerID, followeeID string) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID}).Error
}

func (s *Service) RemoveFollow(ctx context.Context, followerID, followeeID string) error {
	return s.DB.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{}).Error
}

func (s *Service) ListFollowers(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.Follow{}).Where("followee_id = ?", userID).Pluck("follower_id", &ids).Error
	return ids, err
}

func (s *Service) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ?", userID).Pluck("followee_id", &ids).Error
	return ids, err
}

// FeedForUser returns visible complaints by the user and everyone they follow, newest first.
func (s *Service) FeedForUser(ctx context.Context, userID string, before time.Time, limit int) ([]models.Complaint, error) {
	following := s.DB.Model(&models.Follow{}).Select("followee_id").Where("follower_id = ?", userID)

	q := s.DB.WithContext(ctx).Preload("Media").
		Where("hidden = ?", false).
		Where("author_id = ? OR author_id IN (?)", userID, following)
	if !before.IsZero() {
		q = q.Where("created_at < ?", before)
	}

	var out []models.Complaint
	err := q.Order("created_at desc").Limit(limit).Find(&out).Error
	return out, err
}

// IncrTrending bumps the complaint's score in the trending sorted set.
func (s *Service) IncrTrending(ctx context.Context, complaintID string, delta float64) error {
	return s.Redis.ZIncrBy(ctx, keyTrending, delta, complaintID).Err()
}

// RemoveTrending drops a deleted complaint from the trending set.
func (s *Service) RemoveTrending(ctx context.Context, complaintID string) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.ZRem(ctx, keyTrending, complaintID).Err()
}

func (s *Service) TrendingIDs(ctx context.Context, limit int) ([]string, error) {
	ids, err := s.Redis.ZRevRange(ctx, keyTrending, 0, int64(limit-1)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return ids, err
}
