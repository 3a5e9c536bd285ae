package complaint_test

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

func (m *MockStorage) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	args := m.Called(c)
	return args.Error(0)
}

func (m *MockStorage) GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Complaint), args.Error(1)
}

func (m *MockStorage) GetComplaintByClientRef(ctx context.Context, ref string) (*models.Complaint, error) {
	args := m.Called(ref)
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

func (m *MockStorage) DeleteComplaint(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func (m *MockStorage) RemoveTrending(ctx context.Context, complaintID string) error {
	return m.Called(complaintID).Error(0)
}

func (m *MockStorage) TransitionStatus(ctx context.Context, change *models.StatusChange) error {
	return m.Called(change).Error(0)
}

func (m *MockStorage) GetStatusHistory(ctx context.Context, complaintID string) ([]models.StatusChange, error) {
	args := m.Called(complaintID)
	return args.Get(0).([]models.StatusChange), args.Error(1)
}

func (m *MockStorage) AdjustFlagScore(ctx context.Context, complaintID string, delta, hideThreshold int) (bool, error) {
	args := m.Called(complaintID, delta, hideThreshold)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) CreateReport(ctx context.Context, r *models.Report) error {
	return m.Called(r).Error(0)
}

func (m *MockStorage) GetReportByID(ctx context.Context, id uint) (*models.Report, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockStorage) HasOpenReport(ctx context.Context, complaintID, reporterID string) (bool, error) {
	args := m.Called(complaintID, reporterID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) CountReportsSince(ctx context.Context, reporterID string, since time.Time) (int64, error) {
	args := m.Called(reporterID, mock.Anything)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) UpdateReportStatus(ctx context.Context, id uint, status models.ReportStatus) error {
	return m.Called(id, status).Error(0)
}

func (m *MockStorage) UpdateUserReputation(ctx context.Context, userID string, change int) error {
	return m.Called(userID, change).Error(0)
}

func (m *MockStorage) PublishFeedEvent(ctx context.Context, ev models.FeedEvent) error {
	return m.Called(ev).Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) ComplaintCreated(ctx context.Context, c *models.Complaint) {
	m.Called(c)
}

func (m *MockNotifier) StatusChanged(ctx context.Context, c *models.Complaint, from models.ComplaintStatus, note string) {
	m.Called(c, from, note)
}

func (m *MockNotifier) ReportFiled(ctx context.Context, r *models.Report, hidden bool) {
	m.Called(r, hidden)
}
