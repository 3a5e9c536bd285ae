package offline_test

import (
	"civicwatch/backend/internal/apperr"
	"civicwatch/backend/internal/complaint"
	"civicwatch/backend/internal/config"
	"civicwatch/backend/internal/models"
	"civicwatch/backend/internal/offline"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, authorID string, d complaint.Draft) (*models.Complaint, error) {
	args := m.Called(authorID, d.ClientRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Complaint), args.Error(1)
}

// memQueue stands in for the Redis list.
type memQueue struct {
	items [][]byte
}

func (q *memQueue) EnqueuePending(ctx context.Context, payload []byte) error {
	q.items = append(q.items, payload)
	return nil
}

func (q *memQueue) DequeuePending(ctx context.Context) ([]byte, error) {
	if len(q.items) == 0 {
		return nil, nil
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, nil
}

func (q *memQueue) PendingLen(ctx context.Context) (int64, error) {
	return int64(len(q.items)), nil
}

func (q *memQueue) pending(t *testing.T, i int) offline.Pending {
	t.Helper()
	var p offline.Pending
	require.NoError(t, json.Unmarshal(q.items[i], &p))
	return p
}

var errDBDown = errors.New("dial tcp: connection refused")

func draft(ref string) complaint.Draft {
	return complaint.Draft{Title: "Broken light", Latitude: 50.45, Longitude: 30.52, ClientRef: ref}
}

func TestSync_PerItemResults(t *testing.T) {
	sub := new(MockSubmitter)
	q := &memQueue{}
	svc := offline.NewService(sub, q, nil)
	sub.On("Submit", "u-1", "ok").Return(&models.Complaint{ID: "c-1", Status: models.StatusPending}, nil)
	sub.On("Submit", "u-1", "bad").Return(nil, fmt.Errorf("%w: title is required", apperr.ErrInvalid))
	sub.On("Submit", "u-1", "later").Return(nil, errDBDown)

	res, err := svc.Sync(context.Background(), "u-1", []complaint.Draft{draft("ok"), draft("bad"), draft("later"), draft("")})

	require.NoError(t, err)
	require.Len(t, res, 4)
	assert.Equal(t, "c-1", res[0].ID)
	assert.Equal(t, models.StatusPending, res[0].Status)
	assert.Contains(t, res[1].Error, "title")
	assert.True(t, res[2].Queued)
	assert.Empty(t, res[2].Error)
	assert.NotEmpty(t, res[3].Error)

	require.Len(t, q.items, 1)
	p := q.pending(t, 0)
	assert.Equal(t, "u-1", p.AuthorID)
	assert.Equal(t, "later", p.Draft.ClientRef)
	assert.Equal(t, 0, p.Attempts)
}

func TestSync_BatchLimits(t *testing.T) {
	svc := offline.NewService(new(MockSubmitter), &memQueue{}, nil)

	_, err := svc.Sync(context.Background(), "u-1", nil)
	assert.ErrorIs(t, err, offline.ErrEmptyBatch)

	_, err = svc.Sync(context.Background(), "u-1", make([]complaint.Draft, config.MaxSyncBatch+1))
	assert.ErrorIs(t, err, offline.ErrBatchTooLarge)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestReplay_Outcomes(t *testing.T) {
	sub := new(MockSubmitter)
	q := &memQueue{}
	svc := offline.NewService(sub, q, nil)
	enqueue := func(p offline.Pending) {
		b, _ := json.Marshal(p)
		q.items = append(q.items, b)
	}
	enqueue(offline.Pending{AuthorID: "u-1", Draft: draft("ok")})
	enqueue(offline.Pending{AuthorID: "u-1", Draft: draft("retry")})
	enqueue(offline.Pending{AuthorID: "u-1", Draft: draft("last"), Attempts: config.MaxReplayAttempts - 1})
	enqueue(offline.Pending{AuthorID: "u-1", Draft: draft("gone")})
	q.items = append(q.items, []byte("{not json"))

	sub.On("Submit", "u-1", "ok").Return(&models.Complaint{ID: "c-1"}, nil)
	sub.On("Submit", "u-1", "retry").Return(nil, errDBDown)
	sub.On("Submit", "u-1", "last").Return(nil, errDBDown)
	sub.On("Submit", "u-1", "gone").Return(nil, apperr.ErrForbidden)

	stats, err := svc.Replay(context.Background())

	require.NoError(t, err)
	assert.Equal(t, offline.ReplayStats{Replayed: 1, Requeued: 1, Rejected: 1, Dropped: 2}, stats)
	require.Len(t, q.items, 1)
	p := q.pending(t, 0)
	assert.Equal(t, "retry", p.Draft.ClientRef)
	assert.Equal(t, 1, p.Attempts)
	assert.Equal(t, errDBDown.Error(), p.LastError)
	sub.AssertNumberOfCalls(t, "Submit", 4)
}

func TestReplay_EmptyQueue(t *testing.T) {
	sub := new(MockSubmitter)
	svc := offline.NewService(sub, &memQueue{}, nil)

	stats, err := svc.Replay(context.Background())

	require.NoError(t, err)
	assert.Equal(t, offline.ReplayStats{}, stats)
	sub.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestPermanent(t *testing.T) {
	assert.True(t, offline.Permanent(fmt.Errorf("wrap: %w", apperr.ErrInvalid)))
	assert.True(t, offline.Permanent(apperr.ErrDuplicate))
	assert.False(t, offline.Permanent(errDBDown))
	assert.False(t, offline.Permanent(context.DeadlineExceeded))
}
