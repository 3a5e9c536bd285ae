// Package storage persists the service state in PostgreSQL (gorm) and keeps
// the ephemeral and fan-out state (trending, active sessions, pub/sub, replay
// queue) in Redis.
package storage

import (
	"civicwatch/backend/internal/apperr"
	"civicwatch/backend/internal/models"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = apperr.ErrNotFound
	ErrConflict  = fmt.Errorf("%w: concurrent modification", apperr.ErrConflict)
	ErrDuplicate = apperr.ErrDuplicate
	ErrCapacity  = fmt.Errorf("%w: capacity reached", apperr.ErrConflict)
)

// Redis keys and channels.
const (
	keyTrending       = "feed:trending"
	keyActiveSessions = "live:active"
	keyPendingQueue   = "offline:complaints"
	ChannelSignal     = "live:signal"
	ChannelFeed       = "live:feed"
)

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	SetUserRole(ctx context.Context, userID string, role models.Role) error
	SetUserTelegramID(ctx context.Context, userID string, telegramID int64) error
	UpdateUserReputation(ctx context.Context, userID string, change int) error
	UpdateUserLanguage(ctx context.Context, telegramID int64, languageCode string) error
	ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error)
}

type ComplaintStore interface {
	CreateComplaint(ctx context.Context, c *models.Complaint) error
	GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error)
	GetComplaintByClientRef(ctx context.Context, ref string) (*models.Complaint, error)
	GetComplaintsByIDs(ctx context.Context, ids []string) ([]models.Complaint, error)
	ListComplaints(ctx context.Context, f ComplaintFilter) ([]models.Complaint, error)
	DeleteComplaint(ctx context.Context, id string) error
	TransitionStatus(ctx context.Context, change *models.StatusChange) error
	GetStatusHistory(ctx context.Context, complaintID string) ([]models.StatusChange, error)
	AdjustFlagScore(ctx context.Context, complaintID string, delta, hideThreshold int) (bool, error)
}

type ReportStore interface {
	CreateReport(ctx context.Context, r *models.Report) error
	GetReportByID(ctx context.Context, id uint) (*models.Report, error)
	HasOpenReport(ctx context.Context, complaintID, reporterID string) (bool, error)
	CountReportsSince(ctx context.Context, reporterID string, since time.Time) (int64, error)
	UpdateReportStatus(ctx context.Context, id uint, status models.ReportStatus) error
}

type SocialStore interface {
	AddLike(ctx context.Context, complaintID, userID string) (bool, error)
	RemoveLike(ctx context.Context, complaintID, userID string) (bool, error)
	AddComment(ctx context.Context, c *models.Comment) error
	GetCommentByID(ctx context.Context, id uint) (*models.Comment, error)
	ListComments(ctx context.Context, complaintID string) ([]models.Comment, error)
	DeleteComment(ctx context.Context, c *models.Comment) error
	AddFollow(ctx context.Context, followerID, followeeID string) error
	RemoveFollow(ctx context.Context, followerID, followeeID string) error
	ListFollowers(ctx context.Context, userID string) ([]string, error)
	ListFollowing(ctx context.Context, userID string) ([]string, error)
	FeedForUser(ctx context.Context, userID string, before time.Time, limit int) ([]models.Complaint, error)
	IncrTrending(ctx context.Context, complaintID string, delta float64) error
	TrendingIDs(ctx context.Context, limit int) ([]string, error)
	RemoveTrending(ctx context.Context, complaintID string) error
}

type LiveStore interface {
	CreateLiveSession(ctx context.Context, s *models.LiveSession) error
	GetLiveSession(ctx context.Context, id string) (*models.LiveSession, error)
	GetActiveSessionForHost(ctx context.Context, hostID string) (*models.LiveSession, error)
	ListActiveSessions(ctx context.Context) ([]models.LiveSession, error)
	EndLiveSession(ctx context.Context, id string) error
	CountActiveSessions(ctx context.Context) (int64, error)
	CreatePeer(ctx context.Context, p *models.Peer, maxOpen int) error
	GetPeer(ctx context.Context, id string) (*models.Peer, error)
	ListPeers(ctx context.Context, sessionID string, openOnly bool) ([]models.Peer, error)
	ListOpenPeersForViewer(ctx context.Context, viewerID string) ([]models.Peer, error)
	UpdatePeer(ctx context.Context, id string, apply func(*models.Peer) error) (*models.Peer, error)
}

type CertificateStore interface {
	SaveCertificate(ctx context.Context, c *models.Certificate) error
	GetCertificate(ctx context.Context, complaintID string) (*models.Certificate, error)
}

type PubSub interface {
	PublishSignal(ctx context.Context, msg models.SignalMessage) error
	PublishFeedEvent(ctx context.Context, ev models.FeedEvent) error
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

type PendingQueue interface {
	EnqueuePending(ctx context.Context, payload []byte) error
	DequeuePending(ctx context.Context) ([]byte, error)
	PendingLen(ctx context.Context) (int64, error)
}

// Storage is everything the service persists.
type Storage interface {
	UserStore
	ComplaintStore
	ReportStore
	SocialStore
	LiveStore
	CertificateStore
	PubSub
	PendingQueue
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor. rdb may be nil for tools that only touch Postgres.
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{DB: db, Redis: rdb}
}

// partialIndexes back the "at most one" rules that a read-then-insert cannot
// guarantee on its own.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_live_sessions_active_host ON live_sessions (host_id) WHERE is_active`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_peers_open_viewer ON peers (session_id, viewer_id) WHERE state <> 'closed'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_reports_open ON reports (complaint_id, reporter_id) WHERE status = 'new' AND deleted_at IS NULL`,
}

// AutoMigrate створює або оновлює таблиці для всіх моделей.
func (s *Service) AutoMigrate() error {
	if err := s.migrateTables(); err != nil {
		return err
	}
	for _, stmt := range partialIndexes {
		if err := s.DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func (s *Service) migrateTables() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.Complaint{},
		&models.ComplaintMedia{},
		&models.StatusChange{},
		&models.Comment{},
		&models.Like{},
		&models.Follow{},
		&models.Report{},
		&models.LiveSession{},
		&models.Peer{},
		&models.Certificate{},
	)
}

// notFound maps gorm's missing-record error to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

var _ Storage = (*Service)(nil)
