package social_test

import (
	"civicwatch/backend/internal/apperr"
	"civicwatch/backend/internal/config"
	"civicwatch/backend/internal/models"
	"civicwatch/backend/internal/social"
	"civicwatch/backend/internal/storage"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newService() (*social.Service, *MockStorage) {
	st := new(MockStorage)
	return social.NewService(st, nil), st
}

func TestLike_BumpsTrendingOnce(t *testing.T) {
	svc, st := newService()
	st.On("GetComplaintByID", "c-1").Return(&models.Complaint{ID: "c-1"}, nil)
	st.On("AddLike", "c-1", "u-1").Return(true, nil).Once()
	st.On("AddLike", "c-1", "u-1").Return(false, nil).Once()
	st.On("IncrTrending", "c-1", float64(1)).Return(nil).Once()

	require.NoError(t, svc.Like(context.Background(), "u-1", "c-1"))
	require.NoError(t, svc.Like(context.Background(), "u-1", "c-1"))

	st.AssertNumberOfCalls(t, "IncrTrending", 1)
}

func TestLike_HiddenComplaint(t *testing.T) {
	svc, st := newService()
	st.On("GetComplaintByID", "c-1").Return(&models.Complaint{ID: "c-1", Hidden: true}, nil)

	err := svc.Like(context.Background(), "u-1", "c-1")

	assert.ErrorIs(t, err, apperr.ErrNotFound)
	st.AssertNotCalled(t, "AddLike", mock.Anything, mock.Anything)
}

func TestLike_TrendingFailureIsNotFatal(t *testing.T) {
	svc, st := newService()
	st.On("GetComplaintByID", "c-1").Return(&models.Complaint{ID: "c-1"}, nil)
	st.On("AddLike", "c-1", "u-1").Return(true, nil)
	st.On("IncrTrending", "c-1", float64(1)).Return(errors.New("redis down"))

	assert.NoError(t, svc.Like(context.Background(), "u-1", "c-1"))
}

func TestUnlike(t *testing.T) {
	svc, st := newService()
	st.On("RemoveLike", "c-1", "u-1").Return(true, nil)
	st.On("IncrTrending", "c-1", float64(-1)).Return(nil)

	require.NoError(t, svc.Unlike(context.Background(), "u-1", "c-1"))
	st.AssertExpectations(t)
}

func TestAddComment(t *testing.T) {
	svc, st := newService()
	st.On("GetComplaintByID", "c-1").Return(&models.Complaint{ID: "c-1"}, nil)
	st.On("AddComment", mock.MatchedBy(func(c *models.Comment) bool { return c.Body == "Same here" })).Return(nil)
	st.On("PublishFeedEvent", models.FeedEvent{Kind: models.FeedCommentAdded, ComplaintID: "c-1", ActorID: "u-1"}).Return(nil)

	c, err := svc.AddComment(context.Background(), "u-1", "c-1", "  Same here ")

	require.NoError(t, err)
	assert.Equal(t, "u-1", c.AuthorID)
	st.AssertExpectations(t)
}

func TestAddComment_Invalid(t *testing.T) {
	svc, st := newService()

	_, err := svc.AddComment(context.Background(), "u-1", "c-1", "   ")
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = svc.AddComment(context.Background(), "u-1", "c-1", strings.Repeat("a", config.MaxCommentLength+1))
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	st.AssertNotCalled(t, "AddComment", mock.Anything)
}

func TestDeleteComment_Permissions(t *testing.T) {
	comment := &models.Comment{ComplaintID: "c-1", AuthorID: "author"}

	svc, st := newService()
	st.On("GetCommentByID", uint(5)).Return(comment, nil)
	st.On("DeleteComment", comment).Return(nil)

	err := svc.DeleteComment(context.Background(), models.Actor{UserID: "someone", Role: models.RoleCitizen}, 5)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	assert.NoError(t, svc.DeleteComment(context.Background(), models.Actor{UserID: "author", Role: models.RoleCitizen}, 5))
	assert.NoError(t, svc.DeleteComment(context.Background(), models.Actor{UserID: "mod", Role: models.RoleOfficial}, 5))
	st.AssertNumberOfCalls(t, "DeleteComment", 2)
}

func TestFollow(t *testing.T) {
	svc, st := newService()
	st.On("GetUserByID", "u-2").Return(&models.User{ID: "u-2"}, nil)
	st.On("GetUserByID", "ghost").Return(nil, storage.ErrNotFound)
	st.On("AddFollow", "u-1", "u-2").Return(nil)

	assert.NoError(t, svc.Follow(context.Background(), "u-1", "u-2"))
	assert.ErrorIs(t, svc.Follow(context.Background(), "u-1", "u-1"), social.ErrSelfFollow)
	assert.ErrorIs(t, svc.Follow(context.Background(), "u-1", "ghost"), apperr.ErrNotFound)
	st.AssertNumberOfCalls(t, "AddFollow", 1)
}

func TestFeed_ClampsLimit(t *testing.T) {
	svc, st := newService()
	before := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	st.On("FeedForUser", "u-1", before, config.DefaultPageSize).Return([]models.Complaint{{ID: "c-1"}}, nil)

	out, err := svc.Feed(context.Background(), "u-1", before, 0)

	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestPublicFeed_NeverHidden(t *testing.T) {
	svc, st := newService()
	st.On("ListComplaints", mock.MatchedBy(func(f storage.ComplaintFilter) bool {
		return !f.IncludeHidden && f.Category == "roads"
	})).Return([]models.Complaint{}, nil)

	_, err := svc.PublicFeed(context.Background(), storage.ComplaintFilter{Category: "roads", IncludeHidden: true})

	require.NoError(t, err)
	st.AssertExpectations(t)
}

func TestTrending(t *testing.T) {
	svc, st := newService()
	st.On("TrendingIDs", config.TrendingLimit).Return([]string{"c-2", "c-1"}, nil)
	st.On("GetComplaintsByIDs", []string{"c-2", "c-1"}).Return([]models.Complaint{{ID: "c-2"}, {ID: "c-1"}}, nil)

	out, err := svc.Trending(context.Background(), 1000)

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "c-2", out[0].ID)
}
