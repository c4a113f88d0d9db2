package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/model"
)

func validDraft() EventDraft {
	return EventDraft{
		Title:       "Trồng cây xanh tại công viên",
		Description: "Trồng 200 cây xanh quanh hồ điều hòa cùng các tình nguyện viên.",
		Location:    "Công viên Thống Nhất, Hà Nội",
		StartDate:   time.Now().Add(24 * time.Hour),
		EndDate:     time.Now().Add(30 * time.Hour),
		Category:    "Môi trường",
	}
}

func TestSubmitCreatesPendingEvent(t *testing.T) {
	db := newTestDB(t)
	svc := NewEventService(db, testLogger())
	organizer := seedUser(t, db, "org@example.com", model.RoleOrganizer)
	admin := seedUser(t, db, "admin@example.com", model.RoleAdmin)

	event, err := svc.Submit(context.Background(), organizer.ID, validDraft())
	require.NoError(t, err)

	assert.Equal(t, model.EventPending, event.Status)
	assert.Equal(t, organizer.ID, event.OrganizerID)
	assert.EqualValues(t, 1, outboxCountFor(t, db, admin.ID, model.NotifyEventSubmitted))
}

func TestSubmitReportsEveryViolation(t *testing.T) {
	db := newTestDB(t)
	svc := NewEventService(db, testLogger())
	organizer := seedUser(t, db, "org@example.com", model.RoleOrganizer)

	draft := EventDraft{
		Title:       "abc",
		Description: "too short",
		Location:    "hn",
		StartDate:   time.Now().Add(-time.Hour),
		EndDate:     time.Now().Add(-2 * time.Hour),
		Capacity:    intPtr(0),
		Category:    "Thể thao",
	}
	_, err := svc.Submit(context.Background(), organizer.ID, draft)
	require.Error(t, err)

	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Len(t, e.Details, 7)
}

func TestDecideApproveCreatesChannelOnce(t *testing.T) {
	db := newTestDB(t)
	svc := NewEventService(db, testLogger())
	organizer := seedUser(t, db, "org@example.com", model.RoleOrganizer)
	admin := seedUser(t, db, "admin@example.com", model.RoleAdmin)
	event := seedEvent(t, db, organizer.ID, model.EventPending)

	decided, err := svc.Decide(context.Background(), admin.ID, event.ID, ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, model.EventApproved, decided.Status)
	require.NotNil(t, decided.ApprovedAt)

	var channels int64
	require.NoError(t, db.Model(&model.CommunicationChannel{}).
		Where("event_id = ?", event.ID).Count(&channels).Error)
	assert.EqualValues(t, 1, channels)

	assert.EqualValues(t, 1, outboxCountFor(t, db, organizer.ID, model.NotifyEventStatusChange))
}

func TestDecideRejectRequiresSubstantialReason(t *testing.T) {
	db := newTestDB(t)
	svc := NewEventService(db, testLogger())
	organizer := seedUser(t, db, "org@example.com", model.RoleOrganizer)
	admin := seedUser(t, db, "admin@example.com", model.RoleAdmin)
	event := seedEvent(t, db, organizer.ID, model.EventPending)

	_, err := svc.Decide(context.Background(), admin.ID, event.ID, ActionReject, "too vague")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	decided, err := svc.Decide(context.Background(), admin.ID, event.ID, ActionReject, "Thiếu thông tin về địa điểm tổ chức")
	require.NoError(t, err)
	assert.Equal(t, model.EventRejected, decided.Status)
	assert.NotEmpty(t, decided.RejectionReason)

	// no channel for rejected events
	var channels int64
	require.NoError(t, db.Model(&model.CommunicationChannel{}).
		Where("event_id = ?", event.ID).Count(&channels).Error)
	assert.Zero(t, channels)
}

func TestDecideTwiceConflicts(t *testing.T) {
	db := newTestDB(t)
	svc := NewEventService(db, testLogger())
	organizer := seedUser(t, db, "org@example.com", model.RoleOrganizer)
	admin := seedUser(t, db, "admin@example.com", model.RoleAdmin)
	event := seedEvent(t, db, organizer.ID, model.EventPending)

	_, err := svc.Decide(context.Background(), admin.ID, event.ID, ActionApprove, "")
	require.NoError(t, err)

	_, err = svc.Decide(context.Background(), admin.ID, event.ID, ActionApprove, "")
	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperr.KindConflict, e.Kind)
	assert.Equal(t, apperr.ReasonAlreadyDecided, e.Code)
}

func TestDecideMissingEventIsNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewEventService(db, testLogger())
	admin := seedUser(t, db, "admin@example.com", model.RoleAdmin)

	_, err := svc.Decide(context.Background(), admin.ID, 999, ActionApprove, "")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDecideBulkSkipsIneligibleIDs(t *testing.T) {
	db := newTestDB(t)
	svc := NewEventService(db, testLogger())
	organizer := seedUser(t, db, "org@example.com", model.RoleOrganizer)
	admin := seedUser(t, db, "admin@example.com", model.RoleAdmin)

	pending1 := seedEvent(t, db, organizer.ID, model.EventPending)
	pending2 := seedEvent(t, db, organizer.ID, model.EventPending)
	approved := seedEvent(t, db, organizer.ID, model.EventApproved)

	result, err := svc.DecideBulk(context.Background(), admin.ID,
		[]uint64{pending1.ID, pending2.ID, approved.ID, 12345}, ActionApprove, "")
	require.NoError(t, err)

	assert.Equal(t, 2, result.ProcessedCount)
	assert.ElementsMatch(t, []uint64{pending1.ID, pending2.ID}, result.ProcessedIDs)
}

func TestDecideBulkWithNoEligibleEventsConflicts(t *testing.T) {
	db := newTestDB(t)
	svc := NewEventService(db, testLogger())
	organizer := seedUser(t, db, "org@example.com", model.RoleOrganizer)
	admin := seedUser(t, db, "admin@example.com", model.RoleAdmin)
	approved := seedEvent(t, db, organizer.ID, model.EventApproved)

	_, err := svc.DecideBulk(context.Background(), admin.ID, []uint64{approved.ID}, ActionReject,
		"Sự kiện không phù hợp với tiêu chí nền tảng")
	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperr.KindConflict, e.Kind)
	assert.Equal(t, apperr.ReasonNoEligibleEvents, e.Code)
}

func TestListPendingOldestFirst(t *testing.T) {
	db := newTestDB(t)
	svc := NewEventService(db, testLogger())
	organizer := seedUser(t, db, "org@example.com", model.RoleOrganizer)

	older := seedEvent(t, db, organizer.ID, model.EventPending)
	require.NoError(t, db.Model(older).
		Update("created_at", time.Now().Add(-48*time.Hour)).Error)
	newer := seedEvent(t, db, organizer.ID, model.EventPending)

	list, err := svc.ListPending(1, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, older.ID, list[0].ID)
	assert.Equal(t, newer.ID, list[1].ID)
}

func TestEffectiveStatusProjectsCompleted(t *testing.T) {
	db := newTestDB(t)
	svc := NewEventService(db, testLogger())
	organizer := seedUser(t, db, "org@example.com", model.RoleOrganizer)
	event := seedEvent(t, db, organizer.ID, model.EventApproved, func(e *model.Event) {
		e.StartDate = time.Now().Add(-72 * time.Hour)
		e.EndDate = time.Now().Add(-48 * time.Hour)
	})

	got, err := svc.Get(event.ID)
	require.NoError(t, err)
	// stored status stays APPROVED; the projection reads COMPLETED
	assert.Equal(t, model.EventApproved, got.Status)
	assert.Equal(t, model.EventCompleted, got.EffectiveStatus(time.Now()))
}
