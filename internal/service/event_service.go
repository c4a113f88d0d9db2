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

const (
	ActionApprove = "approve"
	ActionReject  = "reject"

	minReasonLen = 10
	maxReasonLen = 500
)

type EventService struct {
	repo *mysql.EventRepository
	log  *zap.Logger
}

func NewEventService(db *gorm.DB, log *zap.Logger) *EventService {
	return &EventService{
		repo: &mysql.EventRepository{DB: db},
		log:  log,
	}
}

type EventDraft struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Capacity    *int      `json:"capacity"`
	Category    string    `json:"category"`
}

// Submit validates the draft as a whole, reporting every violated
// constraint rather than stopping at the first, and stores it PENDING.
func (s *EventService) Submit(ctx context.Context, organizerID uint64, draft EventDraft) (*model.Event, error) {
	if details := validateDraft(draft, time.Now()); len(details) > 0 {
		return nil, apperr.Validation("invalid event draft", details...)
	}

	event := &model.Event{
		Title:       draft.Title,
		Description: draft.Description,
		Location:    draft.Location,
		StartDate:   draft.StartDate,
		EndDate:     draft.EndDate,
		Capacity:    draft.Capacity,
		Category:    draft.Category,
		Status:      model.EventPending,
		OrganizerID: organizerID,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, apperr.Dependency("failed to store event", err)
	}
	s.log.Info("event submitted",
		zap.Uint64("event_id", event.ID),
		zap.Uint64("organizer_id", organizerID))
	return event, nil
}

func validateDraft(d EventDraft, now time.Time) []string {
	var details []string
	if n := len([]rune(d.Title)); n < 5 || n > 200 {
		details = append(details, "title must be 5-200 characters")
	}
	if n := len([]rune(d.Description)); n < 20 || n > 2000 {
		details = append(details, "description must be 20-2000 characters")
	}
	if n := len([]rune(d.Location)); n < 5 || n > 500 {
		details = append(details, "location must be 5-500 characters")
	}
	if !model.ValidCategory(d.Category) {
		details = append(details, "category must be one of the supported categories")
	}
	if d.StartDate.IsZero() || !d.StartDate.After(now) {
		details = append(details, "start date must be in the future")
	}
	if d.EndDate.IsZero() || d.EndDate.Before(d.StartDate) {
		details = append(details, "end date must not be before start date")
	}
	if d.Capacity != nil && (*d.Capacity < 1 || *d.Capacity > 10000) {
		details = append(details, "capacity must be between 1 and 10000")
	}
	return details
}

func validateDecision(action, reason string) error {
	switch action {
	case ActionApprove:
		return nil
	case ActionReject:
		if n := len([]rune(reason)); n < minReasonLen || n > maxReasonLen {
			return apperr.Validation("invalid decision",
				fmt.Sprintf("rejection reason must be %d-%d characters", minReasonLen, maxReasonLen))
		}
		return nil
	default:
		return apperr.Validation("invalid decision", `action must be "approve" or "reject"`)
	}
}

// Decide approves or rejects one pending event. A second decision on the
// same event is an error, not a no-op.
func (s *EventService) Decide(ctx context.Context, adminID, eventID uint64, action, reason string) (*model.Event, error) {
	if err := validateDecision(action, reason); err != nil {
		return nil, err
	}

	event, err := s.repo.Decide(ctx, eventID, adminID, action == ActionApprove, reason, time.Now())
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.NotFound("event not found")
	case errors.Is(err, mysql.ErrAlreadyDecided):
		return nil, apperr.Conflict(apperr.ReasonAlreadyDecided, "event has already been decided")
	default:
		return nil, apperr.Dependency("failed to decide event", err)
	}

	s.log.Info("event decided",
		zap.Uint64("event_id", eventID),
		zap.Uint64("admin_id", adminID),
		zap.String("action", action))
	return event, nil
}

type BulkDecision struct {
	ProcessedCount int      `json:"processed_count"`
	ProcessedIDs   []uint64 `json:"processed_ids"`
}

// DecideBulk decides every listed event still pending in one transaction.
// Ids not found or not pending are silently dropped; only the aggregate
// outcome is reported.
func (s *EventService) DecideBulk(ctx context.Context, adminID uint64, eventIDs []uint64, action, reason string) (*BulkDecision, error) {
	if len(eventIDs) == 0 {
		return nil, apperr.Validation("invalid bulk decision", "event id list must not be empty")
	}
	if err := validateDecision(action, reason); err != nil {
		return nil, err
	}

	processed, err := s.repo.DecideBulk(ctx, eventIDs, adminID, action == ActionApprove, reason, time.Now())
	switch {
	case err == nil:
	case errors.Is(err, mysql.ErrNoneEligible):
		return nil, apperr.Conflict(apperr.ReasonNoEligibleEvents, "no listed event is awaiting a decision")
	default:
		return nil, apperr.Dependency("failed to decide events", err)
	}

	s.log.Info("events bulk decided",
		zap.Uint64("admin_id", adminID),
		zap.String("action", action),
		zap.Int("processed", len(processed)))
	return &BulkDecision{ProcessedCount: len(processed), ProcessedIDs: processed}, nil
}

func (s *EventService) Get(id uint64) (*model.Event, error) {
	event, err := s.repo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("event not found")
	}
	if err != nil {
		return nil, apperr.Dependency("failed to load event", err)
	}
	return event, nil
}

// ListPending is the admin review queue, oldest first so submissions are
// handled fairly.
func (s *EventService) ListPending(page, size int) ([]model.Event, error) {
	offset, limit := pageBounds(page, size)
	list, err := s.repo.ListPending(offset, limit)
	if err != nil {
		return nil, apperr.Dependency("failed to list pending events", err)
	}
	return list, nil
}

func (s *EventService) History(status model.EventStatus, page, size int) ([]model.Event, int64, error) {
	offset, limit := pageBounds(page, size)
	list, total, err := s.repo.ListHistory(status, offset, limit)
	if err != nil {
		return nil, 0, apperr.Dependency("failed to list approval history", err)
	}
	return list, total, nil
}

type EventSummary struct {
	Event            model.Event `json:"event"`
	ParticipantCount int64       `json:"participant_count"`
}

// Browse is the public listing of approved events, soonest first.
func (s *EventService) Browse(page, size int) ([]EventSummary, error) {
	offset, limit := pageBounds(page, size)
	list, err := s.repo.ListApproved(offset, limit)
	if err != nil {
		return nil, apperr.Dependency("failed to list events", err)
	}
	out := make([]EventSummary, 0, len(list))
	for i := range list {
		n, err := s.repo.ApprovedParticipantCount(list[i].ID)
		if err != nil {
			return nil, apperr.Dependency("failed to count participants", err)
		}
		out = append(out, EventSummary{Event: list[i], ParticipantCount: n})
	}
	return out, nil
}

func (s *EventService) MyEvents(organizerID uint64, page, size int) ([]model.Event, error) {
	offset, limit := pageBounds(page, size)
	list, err := s.repo.ListByOrganizer(organizerID, offset, limit)
	if err != nil {
		return nil, apperr.Dependency("failed to list events", err)
	}
	return list, nil
}

func pageBounds(page, size int) (offset, limit int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 50 {
		size = 20
	}
	return (page - 1) * size, size
}
