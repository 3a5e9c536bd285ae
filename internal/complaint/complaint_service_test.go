package complaint_test

import (
	"civicwatch/backend/internal/apperr"
	"civicwatch/backend/internal/complaint"
	"civicwatch/backend/internal/config"
	"civicwatch/backend/internal/models"
	"civicwatch/backend/internal/storage"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	citizen  = models.Actor{UserID: "citizen-1", Role: models.RoleCitizen}
	official = models.Actor{UserID: "official-1", Role: models.RoleOfficial}
	admin    = models.Actor{UserID: "admin-1", Role: models.RoleAdmin}
)

func newService() (*complaint.Service, *MockStorage, *MockNotifier) {
	st := new(MockStorage)
	n := new(MockNotifier)
	return complaint.NewService(st, n, nil), st, n
}

func validDraft() complaint.Draft {
	return complaint.Draft{
		Title:     "  Broken streetlight ",
		Category:  " Lighting",
		Latitude:  50.4501,
		Longitude: 30.5234,
		Media:     []complaint.MediaInput{{Kind: models.MediaPhoto, URL: "https://cdn.example.org/a.jpg"}},
	}
}

func TestSubmit_Success(t *testing.T) {
	svc, st, n := newService()
	st.On("CreateComplaint", mock.AnythingOfType("*models.Complaint")).Return(nil)
	st.On("PublishFeedEvent", mock.MatchedBy(func(ev models.FeedEvent) bool {
		return ev.Kind == models.FeedComplaintCreated
	})).Return(nil)
	n.On("ComplaintCreated", mock.AnythingOfType("*models.Complaint")).Return()

	c, err := svc.Submit(context.Background(), citizen.UserID, validDraft())

	require.NoError(t, err)
	assert.Equal(t, "Broken streetlight", c.Title, "title is trimmed")
	assert.Equal(t, "lighting", c.Category, "category is normalized")
	assert.Equal(t, models.StatusPending, c.Status)
	assert.Equal(t, citizen.UserID, c.AuthorID)
	require.Len(t, c.Media, 1)
	assert.Nil(t, c.ClientRef)
	st.AssertExpectations(t)
	n.AssertExpectations(t)
}

func TestSubmit_Validation(t *testing.T) {
	tests := map[string]func(d *complaint.Draft){
		"empty title":       func(d *complaint.Draft) { d.Title = "   " },
		"long title":        func(d *complaint.Draft) { d.Title = strings.Repeat("я", config.MaxTitleLength+1) },
		"long description":  func(d *complaint.Draft) { d.Description = strings.Repeat("x", config.MaxDescriptionLength+1) },
		"latitude too high": func(d *complaint.Draft) { d.Latitude = 90.1 },
		"longitude too low": func(d *complaint.Draft) { d.Longitude = -180.5 },
		"bad media kind":    func(d *complaint.Draft) { d.Media[0].Kind = "gif" },
		"relative url":      func(d *complaint.Draft) { d.Media[0].URL = "/uploads/a.jpg" },
		"ftp url":           func(d *complaint.Draft) { d.Media[0].URL = "ftp://host/a.jpg" },
		"too many media": func(d *complaint.Draft) {
			for i := 0; i < config.MaxMediaPerComplaint; i++ {
				d.Media = append(d.Media, d.Media[0])
			}
		},
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			svc, st, _ := newService()
			d := validDraft()
			mutate(&d)

			_, err := svc.Submit(context.Background(), citizen.UserID, d)

			assert.ErrorIs(t, err, apperr.ErrInvalid)
			st.AssertNotCalled(t, "CreateComplaint", mock.Anything)
		})
	}
}

func TestSubmit_ClientRefReplayIsIdempotent(t *testing.T) {
	svc, st, n := newService()
	existing := &models.Complaint{ID: "c-1", AuthorID: citizen.UserID, Status: models.StatusPending}
	st.On("GetComplaintByClientRef", "ref-42").Return(existing, nil)

	d := validDraft()
	d.ClientRef = "ref-42"
	c, err := svc.Submit(context.Background(), citizen.UserID, d)

	require.NoError(t, err)
	assert.Same(t, existing, c)
	st.AssertNotCalled(t, "CreateComplaint", mock.Anything)
	n.AssertNotCalled(t, "ComplaintCreated", mock.Anything)
}

func TestSubmit_ClientRefRace(t *testing.T) {
	svc, st, _ := newService()
	stored := &models.Complaint{ID: "c-2", AuthorID: citizen.UserID}
	st.On("GetComplaintByClientRef", "ref-7").Return(nil, storage.ErrNotFound).Once()
	st.On("CreateComplaint", mock.MatchedBy(func(c *models.Complaint) bool {
		return c.ClientRef != nil && *c.ClientRef == "ref-7"
	})).Return(storage.ErrDuplicate)
	st.On("GetComplaintByClientRef", "ref-7").Return(stored, nil).Once()

	d := validDraft()
	d.ClientRef = "ref-7"
	c, err := svc.Submit(context.Background(), citizen.UserID, d)

	require.NoError(t, err)
	assert.Equal(t, "c-2", c.ID)
}

func TestSubmit_ClientRefOfAnotherAuthor(t *testing.T) {
	svc, st, _ := newService()
	st.On("GetComplaintByClientRef", "ref-9").Return(&models.Complaint{ID: "c-9", AuthorID: "someone-else"}, nil)

	d := validDraft()
	d.ClientRef = "ref-9"
	c, err := svc.Submit(context.Background(), citizen.UserID, d)

	assert.Nil(t, c)
	assert.ErrorIs(t, err, complaint.ErrClientRefTaken)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestUpdateStatus_Success(t *testing.T) {
	svc, st, n := newService()
	c := &models.Complaint{ID: "c-1", AuthorID: citizen.UserID, Status: models.StatusInProgress}
	st.On("GetComplaintByID", "c-1").Return(c, nil)
	st.On("TransitionStatus", mock.MatchedBy(func(ch *models.StatusChange) bool {
		return ch.From == models.StatusInProgress && ch.To == models.StatusSolved && ch.ActorID == official.UserID
	})).Return(nil)
	st.On("UpdateUserReputation", citizen.UserID, config.SolvedComplaintReward).Return(nil)
	st.On("PublishFeedEvent", mock.AnythingOfType("models.FeedEvent")).Return(nil)
	n.On("StatusChanged", c, models.StatusInProgress, "fixed").Return()

	updated, err := svc.UpdateStatus(context.Background(), official, "c-1", models.StatusSolved, "fixed")

	require.NoError(t, err)
	assert.Equal(t, models.StatusSolved, updated.Status)
	assert.NotNil(t, updated.ResolvedAt)
	st.AssertExpectations(t)
	n.AssertExpectations(t)
}

func TestUpdateStatus_CitizenForbidden(t *testing.T) {
	svc, st, _ := newService()

	_, err := svc.UpdateStatus(context.Background(), citizen, "c-1", models.StatusInProgress, "")

	assert.ErrorIs(t, err, apperr.ErrForbidden)
	st.AssertNotCalled(t, "GetComplaintByID", mock.Anything)
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	svc, st, _ := newService()
	st.On("GetComplaintByID", "c-1").Return(&models.Complaint{ID: "c-1", Status: models.StatusSolved}, nil)

	_, err := svc.UpdateStatus(context.Background(), official, "c-1", models.StatusInProgress, "")

	assert.ErrorIs(t, err, complaint.ErrInvalidTransition)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	st.AssertNotCalled(t, "TransitionStatus", mock.Anything)
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.UpdateStatus(context.Background(), official, "c-1", "closed", "")

	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestUpdateStatus_ConcurrentChange(t *testing.T) {
	svc, st, n := newService()
	st.On("GetComplaintByID", "c-1").Return(&models.Complaint{ID: "c-1", Status: models.StatusPending}, nil)
	st.On("TransitionStatus", mock.Anything).Return(storage.ErrConflict)

	_, err := svc.UpdateStatus(context.Background(), official, "c-1", models.StatusInProgress, "")

	assert.ErrorIs(t, err, complaint.ErrStatusConflict)
	n.AssertNotCalled(t, "StatusChanged", mock.Anything, mock.Anything, mock.Anything)
}

func TestGet_HiddenVisibility(t *testing.T) {
	svc, st, _ := newService()
	hidden := &models.Complaint{ID: "c-1", AuthorID: citizen.UserID, Hidden: true}
	st.On("GetComplaintByID", "c-1").Return(hidden, nil)

	_, err := svc.Get(context.Background(), models.Actor{UserID: "stranger", Role: models.RoleCitizen}, "c-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	c, err := svc.Get(context.Background(), citizen, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1", c.ID)

	_, err = svc.Get(context.Background(), official, "c-1")
	assert.NoError(t, err)
}

func TestList_ClampsAndHidesForCitizens(t *testing.T) {
	svc, st, _ := newService()
	st.On("ListComplaints", mock.MatchedBy(func(f storage.ComplaintFilter) bool {
		return f.Limit == config.MaxPageSize && !f.IncludeHidden
	})).Return([]models.Complaint{}, nil)

	_, err := svc.List(context.Background(), citizen, storage.ComplaintFilter{Limit: 10_000, IncludeHidden: true})

	require.NoError(t, err)
	st.AssertExpectations(t)

	_, err = svc.List(context.Background(), citizen, storage.ComplaintFilter{Status: "archived"})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestDelete_Permissions(t *testing.T) {
	tests := []struct {
		name    string
		actor   models.Actor
		status  models.ComplaintStatus
		allowed bool
	}{
		{"author while pending", citizen, models.StatusPending, true},
		{"author after triage", citizen, models.StatusInProgress, false},
		{"other citizen", models.Actor{UserID: "x", Role: models.RoleCitizen}, models.StatusPending, false},
		{"official", official, models.StatusPending, false},
		{"admin", admin, models.StatusSolved, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st, _ := newService()
			st.On("GetComplaintByID", "c-1").Return(&models.Complaint{ID: "c-1", AuthorID: citizen.UserID, Status: tt.status}, nil)
			st.On("DeleteComplaint", "c-1").Return(nil)
			st.On("RemoveTrending", "c-1").Return(nil)

			err := svc.Delete(context.Background(), tt.actor, "c-1")

			if tt.allowed {
				assert.NoError(t, err)
				st.AssertCalled(t, "DeleteComplaint", "c-1")
				st.AssertCalled(t, "RemoveTrending", "c-1")
			} else {
				assert.ErrorIs(t, err, apperr.ErrForbidden)
				st.AssertNotCalled(t, "DeleteComplaint", mock.Anything)
				st.AssertNotCalled(t, "RemoveTrending", mock.Anything)
			}
		})
	}
}

func TestDelete_TrendingCleanup(t *testing.T) {
	t.Run("failed delete keeps the entry", func(t *testing.T) {
		svc, st, _ := newService()
		st.On("GetComplaintByID", "c-1").Return(&models.Complaint{ID: "c-1", AuthorID: citizen.UserID, Status: models.StatusPending}, nil)
		st.On("DeleteComplaint", "c-1").Return(storage.ErrNotFound)

		err := svc.Delete(context.Background(), citizen, "c-1")

		assert.ErrorIs(t, err, apperr.ErrNotFound)
		st.AssertNotCalled(t, "RemoveTrending", mock.Anything)
	})

	t.Run("redis failure does not fail the delete", func(t *testing.T) {
		svc, st, _ := newService()
		st.On("GetComplaintByID", "c-1").Return(&models.Complaint{ID: "c-1", AuthorID: citizen.UserID, Status: models.StatusPending}, nil)
		st.On("DeleteComplaint", "c-1").Return(nil)
		st.On("RemoveTrending", "c-1").Return(errors.New("redis: connection refused"))

		assert.NoError(t, svc.Delete(context.Background(), citizen, "c-1"))
	})
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, config.DefaultPageSize, complaint.ClampLimit(0))
	assert.Equal(t, config.DefaultPageSize, complaint.ClampLimit(-3))
	assert.Equal(t, 7, complaint.ClampLimit(7))
	assert.Equal(t, config.MaxPageSize, complaint.ClampLimit(config.MaxPageSize+1))
}
