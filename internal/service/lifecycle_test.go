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

// TestEventLifecycle walks one event from submission to rating the way the
// platform is actually used.
func TestEventLifecycle(t *testing.T) {
	db := newTestDB(t)
	log := testLogger()
	events := NewEventService(db, log)
	regs := NewRegistrationService(db, log)
	channels := NewChannelService(db, log)

	admin := seedUser(t, db, "admin@example.com", model.RoleAdmin)
	organizer := seedUser(t, db, "org@example.com", model.RoleOrganizer)
	volunteer := seedUser(t, db, "vol@example.com", model.RoleVolunteer)

	ctx := context.Background()

	draft := validDraft()
	draft.Capacity = intPtr(30)
	event, err := events.Submit(ctx, organizer.ID, draft)
	require.NoError(t, err)

	// no registration before approval
	_, err = regs.Register(ctx, volunteer.ID, event.ID)
	requireConflict(t, err, apperr.ReasonEventNotOpen)

	event, err = events.Decide(ctx, admin.ID, event.ID, ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, model.EventApproved, event.Status)

	reg, err := regs.Register(ctx, volunteer.ID, event.ID)
	require.NoError(t, err)

	// pending registrants stay outside the channel
	_, err = channels.GetEventChannel(volunteer.ID, event.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	reg, err = regs.Decide(ctx, organizer.ID, model.RoleOrganizer, reg.ID, ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationApproved, reg.Status)

	view, err := channels.GetEventChannel(volunteer.ID, event.ID)
	require.NoError(t, err)
	assert.True(t, view.Access.Post)

	// completion waits for the event to end
	_, err = regs.Complete(ctx, organizer.ID, model.RoleOrganizer, reg.ID)
	requireConflict(t, err, apperr.ReasonNotYetEligible)

	require.NoError(t, db.Model(&model.Event{}).Where("id = ?", event.ID).
		Updates(map[string]any{
			"start_date": time.Now().Add(-72 * time.Hour),
			"end_date":   time.Now().Add(-48 * time.Hour),
		}).Error)

	reg, err = regs.Complete(ctx, organizer.ID, model.RoleOrganizer, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationCompleted, reg.Status)

	reg, err = regs.Rate(ctx, volunteer.ID, reg.ID, 5, "Hoạt động rất bổ ích, ban tổ chức nhiệt tình")
	require.NoError(t, err)
	require.NotNil(t, reg.Rating)
	assert.Equal(t, 5, *reg.Rating)

	// every hop queued its notification intent
	assert.EqualValues(t, 1, outboxCountFor(t, db, admin.ID, model.NotifyEventSubmitted))
	assert.EqualValues(t, 1, outboxCountFor(t, db, organizer.ID, model.NotifyEventStatusChange))
	assert.EqualValues(t, 1, outboxCountFor(t, db, organizer.ID, model.NotifyNewRegistration))
	assert.EqualValues(t, 1, outboxCountFor(t, db, volunteer.ID, model.NotifyRegistrationStatus))
}
