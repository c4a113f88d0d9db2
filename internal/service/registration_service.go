package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/model"
	"volunteerhub/internal/repository/mysql"
)

type RegistrationService struct {
	regs   *mysql.RegistrationRepository
	events *mysql.EventRepository
	log    *zap.Logger
}

func NewRegistrationService(db *gorm.DB, log *zap.Logger) *RegistrationService {
	return &RegistrationService{
		regs:   &mysql.RegistrationRepository{DB: db},
		events: &mysql.EventRepository{DB: db},
		log:    log,
	}
}

// Register signs a volunteer up for an approved event. The registration
// starts PENDING and waits for the organizer's decision.
func (s *RegistrationService) Register(ctx context.Context, volunteerID, eventID uint64) (*model.Registration, error) {
	reg, err := s.regs.Register(ctx, eventID, volunteerID, time.Now())
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.NotFound("event not found")
	case errors.Is(err, mysql.ErrEventNotOpen):
		return nil, apperr.Conflict(apperr.ReasonEventNotOpen, "event is not open for registration")
	case errors.Is(err, mysql.ErrAlreadyRegistered):
		return nil, apperr.Conflict(apperr.ReasonAlreadyRegistered, "already registered for this event")
	case errors.Is(err, mysql.ErrCapacityExceeded):
		return nil, apperr.Conflict(apperr.ReasonCapacityExceeded, "event is full")
	default:
		return nil, apperr.Dependency("failed to register", err)
	}

	s.log.Info("volunteer registered",
		zap.Uint64("event_id", eventID),
		zap.Uint64("volunteer_id", volunteerID))
	return reg, nil
}

// Decide lets the event's organizer (or an admin) approve or reject a
// pending registration.
func (s *RegistrationService) Decide(ctx context.Context, actorID uint64, actorRole model.Role, regID uint64, action, reason string) (*model.Registration, error) {
	if err := validateDecision(action, reason); err != nil {
		return nil, err
	}
	if err := s.authorizeManage(actorID, actorRole, regID); err != nil {
		return nil, err
	}

	reg, err := s.regs.Decide(ctx, regID, action == ActionApprove, reason)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.NotFound("registration not found")
	case errors.Is(err, mysql.ErrAlreadyDecided):
		return nil, apperr.Conflict(apperr.ReasonAlreadyDecided, "registration has already been decided")
	case errors.Is(err, mysql.ErrCapacityExceeded):
		return nil, apperr.Conflict(apperr.ReasonCapacityExceeded, "approving would exceed event capacity")
	default:
		return nil, apperr.Dependency("failed to decide registration", err)
	}

	s.log.Info("registration decided",
		zap.Uint64("registration_id", regID),
		zap.Uint64("actor_id", actorID),
		zap.String("action", action))
	return reg, nil
}

// Complete marks an approved registration as completed once the event has
// ended. Completion before the end date is refused, not deferred.
func (s *RegistrationService) Complete(ctx context.Context, actorID uint64, actorRole model.Role, regID uint64) (*model.Registration, error) {
	if err := s.authorizeManage(actorID, actorRole, regID); err != nil {
		return nil, err
	}

	reg, err := s.regs.FindByID(regID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("registration not found")
	}
	if err != nil {
		return nil, apperr.Dependency("failed to load registration", err)
	}
	if reg.Event != nil && time.Now().Before(reg.Event.EndDate) {
		return nil, apperr.Conflict(apperr.ReasonNotYetEligible, "event has not ended yet")
	}

	reg, err = s.regs.Complete(ctx, regID)
	switch {
	case err == nil:
	case errors.Is(err, mysql.ErrAlreadyDecided):
		return nil, apperr.Conflict(apperr.ReasonNotYetEligible, "only approved registrations can be completed")
	default:
		return nil, apperr.Dependency("failed to complete registration", err)
	}
	return reg, nil
}

// Rate records the volunteer's one-time rating of a completed registration.
func (s *RegistrationService) Rate(ctx context.Context, volunteerID, regID uint64, rating int, feedback string) (*model.Registration, error) {
	var details []string
	if rating < 1 || rating > 5 {
		details = append(details, "rating must be between 1 and 5")
	}
	if len([]rune(feedback)) > 1000 {
		details = append(details, "feedback must be at most 1000 characters")
	}
	if len(details) > 0 {
		return nil, apperr.Validation("invalid rating", details...)
	}

	reg, err := s.regs.FindByID(regID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("registration not found")
	}
	if err != nil {
		return nil, apperr.Dependency("failed to load registration", err)
	}
	if reg.VolunteerID != volunteerID {
		return nil, apperr.Forbidden("only the registered volunteer can rate")
	}

	reg, err = s.regs.Rate(ctx, regID, rating, feedback)
	if err == nil {
		s.log.Info("registration rated",
			zap.Uint64("registration_id", regID),
			zap.Int("rating", rating))
		return reg, nil
	}
	if !errors.Is(err, mysql.ErrAlreadyDecided) {
		return nil, apperr.Dependency("failed to rate registration", err)
	}

	// The conditional write did not match: tell apart "already rated" from
	// "wrong status" by re-reading.
	reg, rerr := s.regs.FindByID(regID)
	if rerr != nil {
		return nil, apperr.Dependency("failed to load registration", rerr)
	}
	if reg.Rating != nil {
		return nil, apperr.Conflict(apperr.ReasonAlreadyRated, "registration has already been rated")
	}
	return nil, apperr.Conflict(apperr.ReasonNotRatable,
		fmt.Sprintf("registration in status %s cannot be rated", reg.Status))
}

func (s *RegistrationService) Get(actorID uint64, actorRole model.Role, regID uint64) (*model.Registration, error) {
	reg, err := s.regs.FindByID(regID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("registration not found")
	}
	if err != nil {
		return nil, apperr.Dependency("failed to load registration", err)
	}
	if actorRole != model.RoleAdmin && reg.VolunteerID != actorID &&
		(reg.Event == nil || reg.Event.OrganizerID != actorID) {
		return nil, apperr.Forbidden("no access to this registration")
	}
	return reg, nil
}

func (s *RegistrationService) MyRegistrations(volunteerID uint64, page, size int) ([]model.Registration, error) {
	offset, limit := pageBounds(page, size)
	list, err := s.regs.ListByVolunteer(volunteerID, offset, limit)
	if err != nil {
		return nil, apperr.Dependency("failed to list registrations", err)
	}
	return list, nil
}

// EventRegistrations lists an event's registrations for its organizer or
// an admin.
func (s *RegistrationService) EventRegistrations(actorID uint64, actorRole model.Role, eventID uint64, page, size int) ([]model.Registration, error) {
	event, err := s.events.FindByID(eventID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("event not found")
	}
	if err != nil {
		return nil, apperr.Dependency("failed to load event", err)
	}
	if actorRole != model.RoleAdmin && event.OrganizerID != actorID {
		return nil, apperr.Forbidden("only the event organizer can list registrations")
	}

	offset, limit := pageBounds(page, size)
	list, err := s.regs.ListByEvent(eventID, offset, limit)
	if err != nil {
		return nil, apperr.Dependency("failed to list registrations", err)
	}
	return list, nil
}

// authorizeManage allows the event's organizer and admins to manage a
// registration. Ownership is checked against the current row.
func (s *RegistrationService) authorizeManage(actorID uint64, actorRole model.Role, regID uint64) error {
	if actorRole == model.RoleAdmin {
		return nil
	}
	reg, err := s.regs.FindByID(regID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("registration not found")
	}
	if err != nil {
		return apperr.Dependency("failed to load registration", err)
	}
	if reg.Event == nil || reg.Event.OrganizerID != actorID {
		return apperr.Forbidden("only the event organizer can manage this registration")
	}
	return nil
}
