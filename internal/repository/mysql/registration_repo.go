package mysql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"volunteerhub/internal/model"

	"gorm.io/gorm"
)

type RegistrationRepository struct {
	DB *gorm.DB
}

// Register creates a pending registration. The event row is locked for the
// duration of the transaction so two near-capacity registrations cannot both
// observe a free slot; the unique (event, volunteer) index backstops the
// duplicate check under the same race.
func (r *RegistrationRepository) Register(ctx context.Context, eventID, volunteerID uint64, now time.Time) (*model.Registration, error) {
	var reg *model.Registration
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event model.Event
		if err := lockForUpdate(tx).First(&event, eventID).Error; err != nil {
			return err
		}
		if event.EffectiveStatus(now) != model.EventApproved {
			return ErrEventNotOpen
		}

		var existing int64
		if err := tx.Model(&model.Registration{}).
			Where("event_id = ? AND volunteer_id = ?", eventID, volunteerID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyRegistered
		}

		if event.Capacity != nil {
			var approved int64
			if err := tx.Model(&model.Registration{}).
				Where("event_id = ? AND status = ?", eventID, model.RegistrationApproved).
				Count(&approved).Error; err != nil {
				return err
			}
			if approved >= int64(*event.Capacity) {
				return ErrCapacityExceeded
			}
		}

		reg = &model.Registration{
			EventID:      eventID,
			VolunteerID:  volunteerID,
			Status:       model.RegistrationPending,
			RegisteredAt: now,
		}
		if err := tx.Create(reg).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrAlreadyRegistered
			}
			return err
		}

		return tx.Create(registeredOutboxRow(&event, reg)).Error
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *RegistrationRepository) FindByID(id uint64) (*model.Registration, error) {
	var reg model.Registration
	err := r.DB.Preload("Event").Preload("Volunteer").First(&reg, id).Error
	return &reg, err
}

// Decide flips a pending registration. Approval re-counts approved rows
// under the event lock so capacity holds even when decisions race.
func (r *RegistrationRepository) Decide(ctx context.Context, regID uint64, approve bool, reason string) (*model.Registration, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reg model.Registration
		if err := tx.Preload("Event").First(&reg, regID).Error; err != nil {
			return err
		}

		if approve {
			if err := lockForUpdate(tx).First(&model.Event{}, reg.EventID).Error; err != nil {
				return err
			}
		}

		updates := map[string]any{}
		if approve {
			updates["status"] = model.RegistrationApproved
		} else {
			updates["status"] = model.RegistrationRejected
			updates["rejection_reason"] = reason
		}
		res := tx.Model(&model.Registration{}).
			Where("id = ? AND status = ?", regID, model.RegistrationPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyDecided
		}

		if approve && reg.Event != nil && reg.Event.Capacity != nil {
			var approved int64
			if err := tx.Model(&model.Registration{}).
				Where("event_id = ? AND status = ?", reg.EventID, model.RegistrationApproved).
				Count(&approved).Error; err != nil {
				return err
			}
			if approved > int64(*reg.Event.Capacity) {
				return ErrCapacityExceeded
			}
		}

		status := model.RegistrationRejected
		if approve {
			status = model.RegistrationApproved
		}
		return tx.Create(decidedRegistrationOutboxRow(&reg, status, reason)).Error
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(regID)
}

// Complete marks an approved registration as completed. Time eligibility is
// the caller's check; the status precondition stays conditional here.
func (r *RegistrationRepository) Complete(ctx context.Context, regID uint64) (*model.Registration, error) {
	res := r.DB.WithContext(ctx).Model(&model.Registration{}).
		Where("id = ? AND status = ?", regID, model.RegistrationApproved).
		Update("status", model.RegistrationCompleted)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyDecided
	}
	return r.FindByID(regID)
}

// Rate writes the one-shot rating. The conditional update makes the
// write-once rule hold under concurrent calls: only one can see rating NULL.
func (r *RegistrationRepository) Rate(ctx context.Context, regID uint64, rating int, feedback string) (*model.Registration, error) {
	res := r.DB.WithContext(ctx).Model(&model.Registration{}).
		Where("id = ? AND status = ? AND rating IS NULL", regID, model.RegistrationCompleted).
		Updates(map[string]any{"rating": rating, "feedback": feedback})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyDecided
	}
	return r.FindByID(regID)
}

// HasApprovedRegistration backs the channel access gate; always a fresh read.
func (r *RegistrationRepository) HasApprovedRegistration(eventID, volunteerID uint64) (bool, error) {
	var n int64
	err := r.DB.Model(&model.Registration{}).
		Where("event_id = ? AND volunteer_id = ? AND status = ?", eventID, volunteerID, model.RegistrationApproved).
		Count(&n).Error
	return n > 0, err
}

func (r *RegistrationRepository) ListByVolunteer(volunteerID uint64, offset, limit int) ([]model.Registration, error) {
	var list []model.Registration
	err := r.DB.Preload("Event").
		Where("volunteer_id = ?", volunteerID).
		Order("registered_at DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *RegistrationRepository) ListByEvent(eventID uint64, offset, limit int) ([]model.Registration, error) {
	var list []model.Registration
	err := r.DB.Preload("Volunteer").
		Where("event_id = ?", eventID).
		Order("registered_at ASC").
		Offset(offset).Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *RegistrationRepository) CountByVolunteerAndStatus(volunteerID uint64, status model.RegistrationStatus) (int64, error) {
	var n int64
	err := r.DB.Model(&model.Registration{}).
		Where("volunteer_id = ? AND status = ?", volunteerID, status).
		Count(&n).Error
	return n, err
}

func registeredOutboxRow(e *model.Event, reg *model.Registration) *model.NotificationOutbox {
	payload, _ := json.Marshal(map[string]any{
		"type":            model.NotifyNewRegistration,
		"event_id":        e.ID,
		"registration_id": reg.ID,
		"url":             fmt.Sprintf("/organizer/events/%d/registrations", e.ID),
	})
	return &model.NotificationOutbox{
		Kind:         model.NotifyNewRegistration,
		TargetUserID: e.OrganizerID,
		Title:        "New registration",
		Body:         fmt.Sprintf("A volunteer registered for %q", e.Title),
		Payload:      string(payload),
	}
}

func decidedRegistrationOutboxRow(reg *model.Registration, status model.RegistrationStatus, reason string) *model.NotificationOutbox {
	payload, _ := json.Marshal(map[string]any{
		"type":            model.NotifyRegistrationStatus,
		"event_id":        reg.EventID,
		"registration_id": reg.ID,
		"status":          status,
		"url":             fmt.Sprintf("/volunteer/events/%d", reg.EventID),
	})
	title := "Registration approved"
	body := "Your registration was approved"
	if reg.Event != nil {
		body = fmt.Sprintf("You were approved to join %q", reg.Event.Title)
	}
	if status == model.RegistrationRejected {
		title = "Registration rejected"
		body = "Your registration was rejected"
		if reg.Event != nil {
			body = fmt.Sprintf("Your registration for %q was rejected: %s", reg.Event.Title, reason)
		}
	}
	return &model.NotificationOutbox{
		Kind:         model.NotifyRegistrationStatus,
		TargetUserID: reg.VolunteerID,
		Title:        title,
		Body:         body,
		Payload:      string(payload),
	}
}
