package live_test

import (
	"civicwatch/backend/internal/models"
	"context"
	"slices"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock

	// rowMu stands in for the row lock UpdatePeer holds in Postgres.
	rowMu sync.Mutex
}

func (m *MockStore) CreateLiveSession(ctx context.Context, s *models.LiveSession) error {
	args := m.Called(s)
	if s.ID == "" {
		s.ID = "session-new"
	}
	return args.Error(0)
}

func (m *MockStore) GetLiveSession(ctx context.Context, id string) (*models.LiveSession, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LiveSession), args.Error(1)
}

func (m *MockStore) GetActiveSessionForHost(ctx context.Context, hostID string) (*models.LiveSession, error) {
	args := m.Called(hostID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LiveSession), args.Error(1)
}

func (m *MockStore) ListActiveSessions(ctx context.Context) ([]models.LiveSession, error) {
	args := m.Called()
	return args.Get(0).([]models.LiveSession), args.Error(1)
}

func (m *MockStore) EndLiveSession(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func (m *MockStore) CountActiveSessions(ctx context.Context) (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) CreatePeer(ctx context.Context, p *models.Peer, maxOpen int) error {
	args := m.Called(p, maxOpen)
	if p.ID == "" {
		p.ID = "peer-new"
	}
	return args.Error(0)
}

func (m *MockStore) GetPeer(ctx context.Context, id string) (*models.Peer, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Peer), args.Error(1)
}

func (m *MockStore) ListPeers(ctx context.Context, sessionID string, openOnly bool) ([]models.Peer, error) {
	args := m.Called(sessionID, openOnly)
	return args.Get(0).([]models.Peer), args.Error(1)
}

func (m *MockStore) ListOpenPeersForViewer(ctx context.Context, viewerID string) ([]models.Peer, error) {
	args := m.Called(viewerID)
	return args.Get(0).([]models.Peer), args.Error(1)
}

// UpdatePeer applies the change to a copy of the row the expectation returns
// and writes it back only on success, one caller at a time.
func (m *MockStore) UpdatePeer(ctx context.Context, id string, apply func(*models.Peer) error) (*models.Peer, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	row := args.Get(0).(*models.Peer)

	m.rowMu.Lock()
	defer m.rowMu.Unlock()
	next := *row
	next.HostCandidates = slices.Clone(row.HostCandidates)
	next.ViewerCandidates = slices.Clone(row.ViewerCandidates)
	if err := apply(&next); err != nil {
		return nil, err
	}
	*row = next
	saved := next
	return &saved, args.Error(1)
}

func (m *MockStore) GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Complaint), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishSignal(ctx context.Context, msg models.SignalMessage) error {
	return m.Called(msg).Error(0)
}

func (m *MockPublisher) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return nil
}

type MockClient struct {
	userID string
	send   chan models.SignalMessage

	mu     sync.Mutex
	closed bool
}

func newMockClient(userID string) *MockClient {
	return &MockClient{userID: userID, send: make(chan models.SignalMessage, 10)}
}

func (c *MockClient) GetUserID() string                           { return c.userID }
func (c *MockClient) GetSendChannel() chan<- models.SignalMessage { return c.send }
func (c *MockClient) Run()                                        {}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
