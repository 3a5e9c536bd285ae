package social_test

import (
	"civicwatch/backend/internal/models"
	"civicwatch/backend/internal/storage"
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) AddLike(ctx context.Context, complaintID, userID string) (bool, error) {
	args := m.Called(complaintID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) RemoveLike(ctx context.Context, complaintID, userID string) (bool, error) {
	args := m.Called(complaintID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) AddComment(ctx context.Context, c *models.Comment) error {
	return m.Called(c).Error(0)
}

func (m *MockStorage) GetCommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockStorage) ListComments(ctx context.Context, complaintID string) ([]models.Comment, error) {
	args := m.Called(complaintID)
	return args.Get(0).([]models.Comment), args.Error(1)
}

func (m *MockStorage) DeleteComment(ctx context.Context, c *models.Comment) error {
	return m.Called(c).Error(0)
}

func (m *MockStorage) AddFollow(ctx context.Context, followerID, followeeID string) error {
	return m.Called(followerID, followeeID).Error(0)
}

func (m *MockStorage) RemoveFollow(ctx context.Context, followerID, followeeID string) error {
	return m.Called(followerID, followeeID).Error(0)
}

func (m *MockStorage) ListFollowers(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(userID)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(userID)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) FeedForUser(ctx context.Context, userID string, before time.Time, limit int) ([]models.Complaint, error) {
	args := m.Called(userID, before, limit)
	return args.Get(0).([]models.Complaint), args.Error(1)
}

func (m *MockStorage) IncrTrending(ctx context.Context, complaintID string, delta float64) error {
	return m.Called(complaintID, delta).Error(0)
}

func (m *MockStorage) RemoveTrending(ctx context.Context, complaintID string) error {
	return m.Called(complaintID).Error(0)
}

func (m *MockStorage) TrendingIDs(ctx context.Context, limit int) ([]string, error) {
	args := m.Called(limit)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Complaint), args.Error(1)
}

func (m *MockStorage) GetComplaintsByIDs(ctx context.Context, ids []string) ([]models.Complaint, error) {
	args := m.Called(ids)
	return args.Get(0).([]models.Complaint), args.Error(1)
}

func (m *MockStorage) ListComplaints(ctx context.Context, f storage.ComplaintFilter) ([]models.Complaint, error) {
	args := m.Called(f)
	return args.Get(0).([]models.Complaint), args.Error(1)
}

func (m *MockStorage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) PublishFeedEvent(ctx context.Context, ev models.FeedEvent) error {
	return m.Called(ev).Error(0)
}
