// Package complaint provides the core logic for handling citizen complaints:
// submission, status triage by officials, and moderation of reports.
package complaint

import (
	"civicwatch/backend/internal/apperr"
	"civicwatch/backend/internal/config"
	"civicwatch/backend/internal/metrics"
	"civicwatch/backend/internal/models"
	"civicwatch/backend/internal/notify"
	"civicwatch/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	ErrInvalidTransition = fmt.Errorf("%w: status transition not allowed", apperr.ErrConflict)
	ErrStatusConflict    = fmt.Errorf("%w: status was changed concurrently", apperr.ErrConflict)
	ErrClientRefTaken    = fmt.Errorf("%w: client_ref belongs to another complaint", apperr.ErrConflict)
)

// Store is the persistence the complaint service needs.
type Store interface {
	storage.ComplaintStore
	storage.ReportStore
	UpdateUserReputation(ctx context.Context, userID string, change int) error
	RemoveTrending(ctx context.Context, complaintID string) error
	PublishFeedEvent(ctx context.Context, ev models.FeedEvent) error
}

// Service handles the business logic for complaints.
type Service struct {
	Storage  Store
	Notifier notify.Notifier
	logger   *zap.Logger
}

// NewService creates a new complaint service.
func NewService(s Store, n notify.Notifier, logger *zap.Logger) *Service {
	if n == nil {
		n = notify.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Storage: s, Notifier: n, logger: logger.Named("complaint")}
}

// Submit validates and stores a new complaint. A draft whose ClientRef was
// already stored returns the stored complaint instead of creating a second one.
func (s *Service) Submit(ctx context.Context, authorID string, d Draft) (*models.Complaint, error) {
	d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	if d.ClientRef != "" {
		existing, err := s.Storage.GetComplaintByClientRef(ctx, d.ClientRef)
		if err == nil {
			return replayed(existing, authorID)
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}

	c := d.toComplaint(authorID)
	if err := s.Storage.CreateComplaint(ctx, c); err != nil {
		// Lost a race with a concurrent replay of the same submission.
		if errors.Is(err, storage.ErrDuplicate) && d.ClientRef != "" {
			existing, err := s.Storage.GetComplaintByClientRef(ctx, d.ClientRef)
			if err != nil {
				return nil, err
			}
			return replayed(existing, authorID)
		}
		return nil, err
	}

	metrics.ComplaintsSubmitted.Inc()
	s.logger.Info("complaint submitted", zap.String("id", c.ID), zap.String("author", authorID))
	s.publish(ctx, models.FeedEvent{Kind: models.FeedComplaintCreated, ComplaintID: c.ID, ActorID: authorID, Status: c.Status})
	s.Notifier.ComplaintCreated(ctx, c)
	return c, nil
}

// replayed returns the stored complaint for a repeated client_ref. A ref owned
// by someone else is a conflict.
func replayed(c *models.Complaint, authorID string) (*models.Complaint, error) {
	if c.AuthorID != authorID {
		return nil, ErrClientRefTaken
	}
	return c, nil
}

// Get returns a complaint. Hidden complaints are visible only to their author and officials.
func (s *Service) Get(ctx context.Context, viewer models.Actor, id string) (*models.Complaint, error) {
	c, err := s.Storage.GetComplaintByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Hidden && c.AuthorID != viewer.UserID && !viewer.Role.CanTriage() {
		return nil, storage.ErrNotFound
	}
	return c, nil
}

// List returns complaints matching f, newest first. Only officials may list hidden ones.
func (s *Service) List(ctx context.Context, viewer models.Actor, f storage.ComplaintFilter) ([]models.Complaint, error) {
	f.Limit = ClampLimit(f.Limit)
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("unknown status %q", f.Status)
	}
	if !viewer.Role.CanTriage() {
		f.IncludeHidden = false
	}
	return s.Storage.ListComplaints(ctx, f)
}

// History returns the status audit trail of a complaint.
func (s *Service) History(ctx context.Context, id string) ([]models.StatusChange, error) {
	if _, err := s.Storage.GetComplaintByID(ctx, id); err != nil {
		return nil, err
	}
	return s.Storage.GetStatusHistory(ctx, id)
}

// UpdateStatus moves a complaint along pending → inProgress → solved|rejected.
func (s *Service) UpdateStatus(ctx context.Context, actor models.Actor, id string, to models.ComplaintStatus, note string) (*models.Complaint, error) {
	if !actor.Role.CanTriage() {
		return nil, fmt.Errorf("%w: only officials can change status", apperr.ErrForbidden)
	}
	if !to.Valid() {
		return nil, invalid("unknown status %q", to)
	}

	c, err := s.Storage.GetComplaintByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := c.Status
	if !from.CanTransition(to) {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, to)
	}

	change := &models.StatusChange{ComplaintID: id, From: from, To: to, ActorID: actor.UserID, Note: note}
	if err := s.Storage.TransitionStatus(ctx, change); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrStatusConflict
		}
		return nil, err
	}

	c.Status = to
	c.UpdatedAt = time.Now()
	if to.Terminal() {
		now := c.UpdatedAt
		c.ResolvedAt = &now
	}
	metrics.StatusTransitions.WithLabelValues(string(to)).Inc()

	if to == models.StatusSolved {
		if err := s.Storage.UpdateUserReputation(ctx, c.AuthorID, config.SolvedComplaintReward); err != nil {
			s.logger.Warn("reputation reward failed", zap.String("user", c.AuthorID), zap.Error(err))
		}
	}

	s.publish(ctx, models.FeedEvent{Kind: models.FeedStatusChanged, ComplaintID: id, ActorID: actor.UserID, Status: to})
	s.Notifier.StatusChanged(ctx, c, from, note)
	return c, nil
}

// Delete removes a complaint. Authors may delete while it is still pending; admins always.
func (s *Service) Delete(ctx context.Context, actor models.Actor, id string) error {
	c, err := s.Storage.GetComplaintByID(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case actor.Role == models.RoleAdmin:
	case actor.UserID == c.AuthorID && c.Status == models.StatusPending:
	default:
		return fmt.Errorf("%w: cannot delete this complaint", apperr.ErrForbidden)
	}
	if err := s.Storage.DeleteComplaint(ctx, id); err != nil {
		return err
	}
	if err := s.Storage.RemoveTrending(ctx, id); err != nil {
		s.logger.Warn("trending entry not removed", zap.String("complaint_id", id), zap.Error(err))
	}
	return nil
}

func (s *Service) publish(ctx context.Context, ev models.FeedEvent) {
	if err := s.Storage.PublishFeedEvent(ctx, ev); err != nil {
		s.logger.Warn("feed event not published", zap.String("kind", ev.Kind), zap.Error(err))
	}
}

// ClampLimit bounds a requested page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return config.DefaultPageSize
	}
	if limit > config.MaxPageSize {
		return config.MaxPageSize
	}
	return limit
}
