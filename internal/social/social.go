// Package social implements the community side of complaints: likes,
// comments, follows and the personal, public and trending feeds.
package social

import (
	"civicwatch/backend/internal/apperr"
	"civicwatch/backend/internal/complaint"
	"civicwatch/backend/internal/config"
	"civicwatch/backend/internal/models"
	"civicwatch/backend/internal/storage"
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

var ErrSelfFollow = fmt.Errorf("%w: cannot follow yourself", apperr.ErrInvalid)

// Store is the persistence the social service needs.
type Store interface {
	storage.SocialStore
	GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error)
	GetComplaintsByIDs(ctx context.Context, ids []string) ([]models.Complaint, error)
	ListComplaints(ctx context.Context, f storage.ComplaintFilter) ([]models.Complaint, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	PublishFeedEvent(ctx context.Context, ev models.FeedEvent) error
}

type Service struct {
	Storage Store
	logger  *zap.Logger
}

func NewService(s Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Storage: s, logger: logger.Named("social")}
}

// visible loads a complaint that the user may interact with.
func (s *Service) visible(ctx context.Context, complaintID string) (*models.Complaint, error) {
	c, err := s.Storage.GetComplaintByID(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if c.Hidden {
		return nil, storage.ErrNotFound
	}
	return c, nil
}

// Like is idempotent: liking twice counts once.
func (s *Service) Like(ctx context.Context, userID, complaintID string) error {
	if _, err := s.visible(ctx, complaintID); err != nil {
		return err
	}
	created, err := s.Storage.AddLike(ctx, complaintID, userID)
	if err != nil {
		return err
	}
	if created {
		if err := s.Storage.IncrTrending(ctx, complaintID, 1); err != nil {
			s.logger.Warn("trending not updated", zap.String("complaint", complaintID), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) Unlike(ctx context.Context, userID, complaintID string) error {
	removed, err := s.Storage.RemoveLike(ctx, complaintID, userID)
	if err != nil {
		return err
	}
	if removed {
		if err := s.Storage.IncrTrending(ctx, complaintID, -1); err != nil {
			s.logger.Warn("trending not updated", zap.String("complaint", complaintID), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) AddComment(ctx context.Context, userID, complaintID, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: comment is empty", apperr.ErrInvalid)
	}
	if utf8.RuneCountInString(body) > config.MaxCommentLength {
		return nil, fmt.Errorf("%w: comment longer than %d characters", apperr.ErrInvalid, config.MaxCommentLength)
	}
	if _, err := s.visible(ctx, complaintID); err != nil {
		return nil, err
	}

	c := &models.Comment{ComplaintID: complaintID, AuthorID: userID, Body: body}
	if err := s.Storage.AddComment(ctx, c); err != nil {
		return nil, err
	}
	if err := s.Storage.PublishFeedEvent(ctx, models.FeedEvent{Kind: models.FeedCommentAdded, ComplaintID: complaintID, ActorID: userID}); err != nil {
		s.logger.Warn("feed event not published", zap.Error(err))
	}
	return c, nil
}

func (s *Service) ListComments(ctx context.Context, complaintID string) ([]models.Comment, error) {
	if _, err := s.visible(ctx, complaintID); err != nil {
		return nil, err
	}
	return s.Storage.ListComments(ctx, complaintID)
}

// DeleteComment is allowed to the comment author and to officials.
func (s *Service) DeleteComment(ctx context.Context, actor models.Actor, commentID uint) error {
	c, err := s.Storage.GetCommentByID(ctx, commentID)
	if err != nil {
		return err
	}
	if c.AuthorID != actor.UserID && !actor.Role.CanTriage() {
		return fmt.Errorf("%w: not your comment", apperr.ErrForbidden)
	}
	return s.Storage.DeleteComment(ctx, c)
}

func (s *Service) Follow(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return ErrSelfFollow
	}
	if _, err := s.Storage.GetUserByID(ctx, followeeID); err != nil {
		return err
	}
	return s.Storage.AddFollow(ctx, followerID, followeeID)
}

func (s *Service) Unfollow(ctx context.Context, followerID, followeeID string) error {
	return s.Storage.RemoveFollow(ctx, followerID, followeeID)
}

func (s *Service) Followers(ctx context.Context, userID string) ([]string, error) {
	return s.Storage.ListFollowers(ctx, userID)
}

func (s *Service) Following(ctx context.Context, userID string) ([]string, error) {
	return s.Storage.ListFollowing(ctx, userID)
}

// Feed returns the user's own complaints and those of people they follow.
// Pass the created_at of the last item as before to get the next page.
func (s *Service) Feed(ctx context.Context, userID string, before time.Time, limit int) ([]models.Complaint, error) {
	return s.Storage.FeedForUser(ctx, userID, before, complaint.ClampLimit(limit))
}

// PublicFeed returns the newest visible complaints, optionally filtered.
func (s *Service) PublicFeed(ctx context.Context, f storage.ComplaintFilter) ([]models.Complaint, error) {
	f.IncludeHidden = false
	f.Limit = complaint.ClampLimit(f.Limit)
	return s.Storage.ListComplaints(ctx, f)
}

// Trending returns the most liked complaints, best first.
func (s *Service) Trending(ctx context.Context, limit int) ([]models.Complaint, error) {
	if limit <= 0 || limit > config.TrendingLimit {
		limit = config.TrendingLimit
	}
	ids, err := s.Storage.TrendingIDs(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.Storage.GetComplaintsByIDs(ctx, ids)
}
