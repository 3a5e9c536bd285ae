package storage

import (
	"civicwatch/backend/internal/models"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateLiveSession зберігає сесію в PostgreSQL і додає її до множини активних у Redis.
// A second active session for the same host fails with ErrDuplicate.
func (s *Service) CreateLiveSession(ctx context.Context, ls *models.LiveSession) error {
	if err := s.DB.WithContext(ctx).Create(ls).Error; err != nil {
		return notFound(err)
	}
	return s.Redis.SAdd(ctx, keyActiveSessions, ls.ID).Err()
}

func (s *Service) GetLiveSession(ctx context.Context, id string) (*models.LiveSession, error) {
	var ls models.LiveSession
	if err := s.DB.WithContext(ctx).First(&ls, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &ls, nil
}

// GetActiveSessionForHost returns (nil, nil) when the host is not broadcasting.
func (s *Service) GetActiveSessionForHost(ctx context.Context, hostID string) (*models.LiveSession, error) {
	var ls models.LiveSession
	err := s.DB.WithContext(ctx).Where("host_id = ? AND is_active = ?", hostID, true).First(&ls).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ls, nil
}

// ListActiveSessions reads the active set from Redis and hydrates it from Postgres.
func (s *Service) ListActiveSessions(ctx context.Context) ([]models.LiveSession, error) {
	ids, err := s.Redis.SMembers(ctx, keyActiveSessions).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var sessions []models.LiveSession
	err = s.DB.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Order("started_at desc").
		Find(&sessions).Error
	return sessions, err
}

// CountActiveSessions is the size of the shared active set, across all instances.
func (s *Service) CountActiveSessions(ctx context.Context) (int64, error) {
	return s.Redis.SCard(ctx, keyActiveSessions).Result()
}

// EndLiveSession marks the session inactive and closes every peer in one transaction.
func (s *Service) EndLiveSession(ctx context.Context, id string) error {
	now := time.Now()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.LiveSession{}).
			Where("id = ? AND is_active = ?", id, true).
			Updates(map[string]interface{}{"is_active": false, "ended_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.Peer{}).
			Where("session_id = ? AND state <> ?", id, models.PeerClosed).
			Updates(map[string]interface{}{"state": models.PeerClosed, "updated_at": now}).Error
	})
	if err != nil {
		return err
	}
	return s.Redis.SRem(ctx, keyActiveSessions, id).Err()
}

// CreatePeer admits a viewer while holding the session row lock, so the open
// peer count cannot be exceeded by concurrent joins. A viewer that already has
// an open peer gets ErrDuplicate; a full session gets ErrCapacity; an ended
// session gets ErrNotFound.
func (s *Service) CreatePeer(ctx context.Context, p *models.Peer, maxOpen int) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ls models.LiveSession
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&ls, "id = ? AND is_active = ?", p.SessionID, true).Error; err != nil {
			return err
		}

		var open []models.Peer
		if err := tx.Select("id", "viewer_id").
			Where("session_id = ? AND state <> ?", p.SessionID, models.PeerClosed).
			Find(&open).Error; err != nil {
			return err
		}
		for _, o := range open {
			if o.ViewerID == p.ViewerID {
				return ErrDuplicate
			}
		}
		if len(open) >= maxOpen {
			return ErrCapacity
		}
		return tx.Create(p).Error
	})
	return notFound(err)
}

func (s *Service) GetPeer(ctx context.Context, id string) (*models.Peer, error) {
	var p models.Peer
	if err := s.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *Service) ListPeers(ctx context.Context, sessionID string, openOnly bool) ([]models.Peer, error) {
	q := s.DB.WithContext(ctx).Where("session_id = ?", sessionID)
	if openOnly {
		q = q.Where("state <> ?", models.PeerClosed)
	}
	var peers []models.Peer
	err := q.Order("created_at asc").Find(&peers).Error
	return peers, err
}

// ListOpenPeersForViewer returns the viewer's peers that are not closed yet.
func (s *Service) ListOpenPeersForViewer(ctx context.Context, viewerID string) ([]models.Peer, error) {
	var peers []models.Peer
	err := s.DB.WithContext(ctx).
		Where("viewer_id = ? AND state <> ?", viewerID, models.PeerClosed).
		Find(&peers).Error
	return peers, err
}

// UpdatePeer locks the peer row, lets apply change it and writes it back in
// one transaction. Concurrent signals for the same peer are serialised, so
// none of them overwrites another's answer, candidates or state. An error from
// apply rolls back and is returned as is.
func (s *Service) UpdatePeer(ctx context.Context, id string, apply func(*models.Peer) error) (*models.Peer, error) {
	var p models.Peer
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error; err != nil {
			return err
		}
		if err := apply(&p); err != nil {
			return err
		}
		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}
