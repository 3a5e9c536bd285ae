package certify_test

import (
	"civicwatch/backend/internal/certify"
	"civicwatch/backend/internal/models"
	"civicwatch/backend/internal/storage"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Complaint), args.Error(1)
}

func (m *MockStore) SaveCertificate(ctx context.Context, c *models.Certificate) error {
	return m.Called(c).Error(0)
}

func (m *MockStore) GetCertificate(ctx context.Context, complaintID string) (*models.Certificate, error) {
	args := m.Called(complaintID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Certificate), args.Error(1)
}

func sample() *models.Complaint {
	return &models.Complaint{
		ID:          "c-1",
		AuthorID:    "u-1",
		Title:       "Broken light",
		Description: "Lamp post 12 is dark",
		Category:    "lighting",
		Latitude:    50.4501,
		Longitude:   30.5234,
		CreatedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("EET", 2*3600)),
		Media: []models.ComplaintMedia{
			{Kind: models.MediaPhoto, URL: "https://cdn.example.org/b.jpg"},
			{Kind: models.MediaPhoto, URL: "https://cdn.example.org/a.jpg"},
		},
		Status: models.StatusPending,
	}
}

func TestFingerprint_Canonical(t *testing.T) {
	a := sample()
	b := sample()
	b.Media[0], b.Media[1] = b.Media[1], b.Media[0]
	b.CreatedAt = b.CreatedAt.UTC()
	b.Status = models.StatusSolved
	b.LikesCount = 40

	assert.Equal(t, certify.Fingerprint(a), certify.Fingerprint(b))
	assert.Len(t, certify.Fingerprint(a), 64)
}

func TestFingerprint_DetectsEdits(t *testing.T) {
	base := certify.Fingerprint(sample())

	edited := sample()
	edited.Description = "Lamp post 13 is dark"
	assert.NotEqual(t, base, certify.Fingerprint(edited))

	moved := sample()
	moved.Latitude += 0.000001
	assert.NotEqual(t, base, certify.Fingerprint(moved))

	// Below the six-decimal precision.
	jitter := sample()
	jitter.Latitude += 0.0000001
	assert.Equal(t, base, certify.Fingerprint(jitter))
}

func TestCertify_StoresOnce(t *testing.T) {
	st := new(MockStore)
	svc := certify.NewService(st, nil)
	stored := &models.Certificate{ComplaintID: "c-1", Algorithm: certify.Algorithm, Hash: certify.Fingerprint(sample())}
	st.On("GetCertificate", "c-1").Return(nil, storage.ErrNotFound).Once()
	st.On("GetComplaintByID", "c-1").Return(sample(), nil)
	st.On("SaveCertificate", mock.MatchedBy(func(c *models.Certificate) bool {
		return c.Hash == stored.Hash && c.Algorithm == "sha256"
	})).Return(nil)
	st.On("GetCertificate", "c-1").Return(stored, nil)

	cert, err := svc.Certify(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, stored.Hash, cert.Hash)

	again, err := svc.Certify(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, cert, again)
	st.AssertNumberOfCalls(t, "SaveCertificate", 1)
}

func TestVerify(t *testing.T) {
	st := new(MockStore)
	svc := certify.NewService(st, nil)
	tampered := sample()
	tampered.Title = "Everything is fine"
	st.On("GetCertificate", "c-1").Return(&models.Certificate{ComplaintID: "c-1", Hash: certify.Fingerprint(sample())}, nil)
	st.On("GetComplaintByID", "c-1").Return(sample(), nil).Once()
	st.On("GetComplaintByID", "c-1").Return(tampered, nil).Once()

	ok, err := svc.Verify(context.Background(), "c-1")
	require.NoError(t, err)
	assert.True(t, ok.Valid)

	bad, err := svc.Verify(context.Background(), "c-1")
	require.NoError(t, err)
	assert.False(t, bad.Valid)
	assert.NotEqual(t, bad.Stored, bad.Computed)
}

func TestVerify_NotCertified(t *testing.T) {
	st := new(MockStore)
	st.On("GetCertificate", "c-2").Return(nil, storage.ErrNotFound)

	_, err := certify.NewService(st, nil).Verify(context.Background(), "c-2")

	assert.ErrorIs(t, err, storage.ErrNotFound)
}
