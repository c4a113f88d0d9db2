package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/model"
)

func seedChannel(t *testing.T, db *gorm.DB, eventID uint64) *model.CommunicationChannel {
	t.Helper()
	ch := &model.CommunicationChannel{EventID: eventID}
	require.NoError(t, db.Create(ch).Error)
	return ch
}

func TestOrganizerModeratesOwnChannel(t *testing.T) {
	db := newTestDB(t)
	svc := NewChannelService(db, testLogger())
	organizer := seedUser(t, db, "org@example.com", model.RoleOrganizer)
	event := seedEvent(t, db, organizer.ID, model.EventApproved)
	seedChannel(t, db, event.ID)

	view, err := svc.GetEventChannel(organizer.ID, event.ID)
	require.NoError(t, err)
	assert.True(t, view.Access.Read)
	assert.True(t, view.Access.Post)
	assert.True(t, view.Access.Comment)
	assert.True(t, view.Access.Moderate)
}

func TestApprovedVolunteerReadsButCannotModerate(t *testing.T) {
	db := newTestDB(t)
	svc := NewChannelService(db, testLogger())
	organizer := seedUser(t, db, "org@example.com", model.RoleOrganizer)
	volunteer := seedUser(t, db, "vol@example.com", model.RoleVolunteer)
	event := seedEvent(t, db, organizer.ID, model.EventApproved)
	seedChannel(t, db, event.ID)
	seedRegistration(t, db, event.ID, volunteer.ID, model.RegistrationApproved)

	view, err := svc.GetEventChannel(volunteer.ID, event.ID)
	require.NoError(t, err)
	assert.True(t, view.Access.Read)
	assert.True(t, view.Access.Post)
	assert.False(t, view.Access.Moderate)
}

func TestPendingRegistrationConfersNoAccess(t *testing.T) {
	db := newTestDB(t)
	svc := NewChannelService(db, testLogger())
	organizer := seedUser(t, db, "org@example.com", model.RoleOrganizer)
	volunteer := seedUser(t, db, "vol@example.com", model.RoleVolunteer)
	event := seedEvent(t, db, organizer.ID, model.EventApproved)
	seedChannel(t, db, event.ID)
	seedRegistration(t, db, event.ID, volunteer.ID, model.RegistrationPending)

	_, err := svc.GetEventChannel(volunteer.ID, event.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestAccessRecomputedAfterRejection(t *testing.T) {
	db := newTestDB(t)
	svc := NewChannelService(db, testLogger())
	organizer := seedUser(t, db, "org@example.com", model.RoleOrganizer)
	volunteer := seedUser(t, db, "vol@example.com", model.RoleVolunteer)
	event := seedEvent(t, db, organizer.ID, model.EventApproved)
	seedChannel(t, db, event.ID)
	reg := seedRegistration(t, db, event.ID, volunteer.ID, model.RegistrationApproved)

	_, err := svc.GetEventChannel(volunteer.ID, event.ID)
	require.NoError(t, err)

	// a later rejection revokes access on the very next call
	require.NoError(t, db.Model(reg).Update("status", model.RegistrationRejected).Error)

	_, err = svc.GetEventChannel(volunteer.ID, event.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestPostCommentAndLikeFlow(t *testing.T) {
	db := newTestDB(t)
	svc := NewChannelService(db, testLogger())
	organizer := seedUser(t, db, "org@example.com", model.RoleOrganizer)
	volunteer := seedUser(t, db, "vol@example.com", model.RoleVolunteer)
	event := seedEvent(t, db, organizer.ID, model.EventApproved)
	ch := seedChannel(t, db, event.ID)
	seedRegistration(t, db, event.ID, volunteer.ID, model.RegistrationApproved)

	post, err := svc.CreatePost(organizer.ID, ch.ID, "Tập trung tại cổng công viên lúc 7h sáng nhé!", "")
	require.NoError(t, err)

	_, err = svc.CreateComment(volunteer.ID, post.ID, "Em sẽ đến đúng giờ ạ")
	require.NoError(t, err)

	liked, count, err := svc.ToggleLike(context.Background(), volunteer.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.EqualValues(t, 1, count)

	liked, count, err = svc.ToggleLike(context.Background(), volunteer.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Zero(t, count)

	views, total, err := svc.ListPosts(context.Background(), volunteer.ID, ch.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, views, 1)
	assert.Len(t, views[0].Comments, 1)
}

func TestPostContentValidated(t *testing.T) {
	db := newTestDB(t)
	svc := NewChannelService(db, testLogger())
	organizer := seedUser(t, db, "org@example.com", model.RoleOrganizer)
	event := seedEvent(t, db, organizer.ID, model.EventApproved)
	ch := seedChannel(t, db, event.ID)

	_, err := svc.CreatePost(organizer.ID, ch.ID, "", "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestDeletePostAuthorOrModeratorOnly(t *testing.T) {
	db := newTestDB(t)
	svc := NewChannelService(db, testLogger())
	organizer := seedUser(t, db, "org@example.com", model.RoleOrganizer)
	author := seedUser(t, db, "author@example.com", model.RoleVolunteer)
	other := seedUser(t, db, "other@example.com", model.RoleVolunteer)
	event := seedEvent(t, db, organizer.ID, model.EventApproved)
	ch := seedChannel(t, db, event.ID)
	seedRegistration(t, db, event.ID, author.ID, model.RegistrationApproved)
	seedRegistration(t, db, event.ID, other.ID, model.RegistrationApproved)

	post, err := svc.CreatePost(author.ID, ch.ID, "Có ai đi chung xe từ quận 1 không?", "")
	require.NoError(t, err)

	err = svc.DeletePost(context.Background(), other.ID, post.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	require.NoError(t, svc.DeletePost(context.Background(), organizer.ID, post.ID))

	err = db.First(&model.ChannelPost{}, post.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestChannelStaysOpenAfterEventEnds(t *testing.T) {
	db := newTestDB(t)
	svc := NewChannelService(db, testLogger())
	organizer := seedUser(t, db, "org@example.com", model.RoleOrganizer)
	volunteer := seedUser(t, db, "vol@example.com", model.RoleVolunteer)
	event := seedEvent(t, db, organizer.ID, model.EventApproved, func(e *model.Event) {
		e.StartDate = time.Now().Add(-72 * time.Hour)
		e.EndDate = time.Now().Add(-48 * time.Hour)
	})
	seedChannel(t, db, event.ID)
	seedRegistration(t, db, event.ID, volunteer.ID, model.RegistrationApproved)

	view, err := svc.GetEventChannel(volunteer.ID, event.ID)
	require.NoError(t, err)
	assert.True(t, view.Access.Read)
	assert.True(t, view.Access.Post)

	orgView, err := svc.GetEventChannel(organizer.ID, event.ID)
	require.NoError(t, err)
	assert.True(t, orgView.Access.Moderate)
}
