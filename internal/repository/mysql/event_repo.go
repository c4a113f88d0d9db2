package mysql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"volunteerhub/internal/model"

	"gorm.io/gorm"
)

type EventRepository struct {
	DB *gorm.DB
}

// Create stores a pending event and, in the same transaction, queues a
// notification intent for every admin so the review queue is announced.
func (r *EventRepository) Create(ctx context.Context, event *model.Event) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}

		adminIDs, err := (&UserRepository{DB: tx}).ListAdminIDs()
		if err != nil {
			return err
		}
		for _, adminID := range adminIDs {
			row := submittedOutboxRow(event, adminID)
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *EventRepository) FindByID(id uint64) (*model.Event, error) {
	var event model.Event
	err := r.DB.Preload("Organizer").First(&event, id).Error
	return &event, err
}

// Decide flips a pending event to approved or rejected. The status check is
// a conditional update inside the transaction, so a concurrent second
// decision sees zero affected rows instead of racing a read-then-write. On
// approval the channel is created in the same transaction; if either write
// fails both roll back and the event stays pending.
func (r *EventRepository) Decide(ctx context.Context, eventID, adminID uint64, approve bool, reason string, now time.Time) (*model.Event, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"approved_by_id": adminID,
		}
		if approve {
			updates["status"] = model.EventApproved
			updates["approved_at"] = now
		} else {
			updates["status"] = model.EventRejected
			updates["rejection_reason"] = reason
		}

		res := tx.Model(&model.Event{}).
			Where("id = ? AND status = ?", eventID, model.EventPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&model.Event{}).Where("id = ?", eventID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return gorm.ErrRecordNotFound
			}
			return ErrAlreadyDecided
		}

		if approve {
			if err := tx.Create(&model.CommunicationChannel{EventID: eventID}).Error; err != nil {
				return err
			}
		}

		var event model.Event
		if err := tx.First(&event, eventID).Error; err != nil {
			return err
		}
		return tx.Create(decidedOutboxRow(&event)).Error
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(eventID)
}

// DecideBulk applies one decision to every id still pending. Ids that are
// missing or already decided are dropped without a per-id error; the whole
// eligible set commits together or not at all.
func (r *EventRepository) DecideBulk(ctx context.Context, eventIDs []uint64, adminID uint64, approve bool, reason string, now time.Time) ([]uint64, error) {
	var processed []uint64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending []model.Event
		if err := lockForUpdate(tx).
			Where("id IN ? AND status = ?", eventIDs, model.EventPending).
			Find(&pending).Error; err != nil {
			return err
		}
		if len(pending) == 0 {
			return ErrNoneEligible
		}

		ids := make([]uint64, 0, len(pending))
		for _, e := range pending {
			ids = append(ids, e.ID)
		}

		updates := map[string]any{
			"approved_by_id": adminID,
		}
		if approve {
			updates["status"] = model.EventApproved
			updates["approved_at"] = now
		} else {
			updates["status"] = model.EventRejected
			updates["rejection_reason"] = reason
		}
		if err := tx.Model(&model.Event{}).
			Where("id IN ? AND status = ?", ids, model.EventPending).
			Updates(updates).Error; err != nil {
			return err
		}

		for i := range pending {
			if approve {
				if err := tx.Create(&model.CommunicationChannel{EventID: pending[i].ID}).Error; err != nil {
					return err
				}
				pending[i].Status = model.EventApproved
			} else {
				pending[i].Status = model.EventRejected
				pending[i].RejectionReason = reason
			}
			if err := tx.Create(decidedOutboxRow(&pending[i])).Error; err != nil {
				return err
			}
		}

		processed = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	return processed, nil
}

// ListPending returns the review queue, oldest submissions first.
func (r *EventRepository) ListPending(offset, limit int) ([]model.Event, error) {
	var list []model.Event
	err := r.DB.Preload("Organizer").
		Where("status = ?", model.EventPending).
		Order("created_at ASC").
		Offset(offset).Limit(limit).
		Find(&list).Error
	return list, err
}

// ListHistory returns decided events, most recent decision first. status
// filters to APPROVED or REJECTED when set.
func (r *EventRepository) ListHistory(status model.EventStatus, offset, limit int) ([]model.Event, int64, error) {
	q := r.DB.Model(&model.Event{})
	if status == model.EventApproved || status == model.EventRejected {
		q = q.Where("status = ?", status)
	} else {
		q = q.Where("status IN ?", []model.EventStatus{model.EventApproved, model.EventRejected})
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.Event
	err := q.Preload("Organizer").Preload("ApprovedBy").
		Order("approved_at DESC, updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error
	return list, total, err
}

// ListApproved is the public browse surface: upcoming first.
func (r *EventRepository) ListApproved(offset, limit int) ([]model.Event, error) {
	var list []model.Event
	err := r.DB.Preload("Organizer").
		Where("status = ?", model.EventApproved).
		Order("start_date ASC").
		Offset(offset).Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *EventRepository) ListByOrganizer(organizerID uint64, offset, limit int) ([]model.Event, error) {
	var list []model.Event
	err := r.DB.
		Where("organizer_id = ?", organizerID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *EventRepository) ListAll() ([]model.Event, error) {
	var list []model.Event
	err := r.DB.Preload("Organizer").Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *EventRepository) CountByStatus(status model.EventStatus) (int64, error) {
	var n int64
	err := r.DB.Model(&model.Event{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

func submittedOutboxRow(e *model.Event, adminID uint64) *model.NotificationOutbox {
	payload, _ := json.Marshal(map[string]any{
		"type":     model.NotifyEventSubmitted,
		"event_id": e.ID,
		"url":      fmt.Sprintf("/admin/events/pending/%d", e.ID),
	})
	return &model.NotificationOutbox{
		Kind:         model.NotifyEventSubmitted,
		TargetUserID: adminID,
		Title:        "New event awaiting approval",
		Body:         fmt.Sprintf("Event %q was submitted for review", e.Title),
		Payload:      string(payload),
	}
}

func decidedOutboxRow(e *model.Event) *model.NotificationOutbox {
	payload, _ := json.Marshal(map[string]any{
		"type":     model.NotifyEventStatusChange,
		"event_id": e.ID,
		"status":   e.Status,
		"url":      fmt.Sprintf("/organizer/events/%d", e.ID),
	})
	title := "Event approved"
	body := fmt.Sprintf("Your event %q was approved and published", e.Title)
	if e.Status == model.EventRejected {
		title = "Event rejected"
		body = fmt.Sprintf("Your event %q was rejected: %s", e.Title, e.RejectionReason)
	}
	return &model.NotificationOutbox{
		Kind:         model.NotifyEventStatusChange,
		TargetUserID: e.OrganizerID,
		Title:        title,
		Body:         body,
		Payload:      string(payload),
	}
}

// ApprovedParticipantCount is a read-side helper for the browse listing.
func (r *EventRepository) ApprovedParticipantCount(eventID uint64) (int64, error) {
	var n int64
	err := r.DB.Model(&model.Registration{}).
		Where("event_id = ? AND status = ?", eventID, model.RegistrationApproved).
		Count(&n).Error
	return n, err
}
