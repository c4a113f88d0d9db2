package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/model"
	"volunteerhub/internal/repository/mysql"
)

type AdminService struct {
	users  *mysql.UserRepository
	events *mysql.EventRepository
	regs   *mysql.RegistrationRepository
	log    *zap.Logger
}

func NewAdminService(db *gorm.DB, log *zap.Logger) *AdminService {
	return &AdminService{
		users:  &mysql.UserRepository{DB: db},
		events: &mysql.EventRepository{DB: db},
		regs:   &mysql.RegistrationRepository{DB: db},
		log:    log,
	}
}

// ExportEventsCSV renders every event, regardless of status, as CSV for
// offline reporting.
func (s *AdminService) ExportEventsCSV() ([]byte, error) {
	events, err := s.events.ListAll()
	if err != nil {
		return nil, apperr.Dependency("failed to load events", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "title", "category", "location", "status",
		"start_date", "end_date", "capacity", "organizer_id", "approved_participants"})

	now := time.Now()
	for i := range events {
		e := &events[i]
		capacity := ""
		if e.Capacity != nil {
			capacity = strconv.Itoa(*e.Capacity)
		}
		participants, err := s.events.ApprovedParticipantCount(e.ID)
		if err != nil {
			return nil, apperr.Dependency("failed to count participants", err)
		}
		_ = w.Write([]string{
			strconv.FormatUint(e.ID, 10),
			e.Title,
			e.Category,
			e.Location,
			string(e.EffectiveStatus(now)),
			e.StartDate.Format(time.RFC3339),
			e.EndDate.Format(time.RFC3339),
			capacity,
			strconv.FormatUint(e.OrganizerID, 10),
			strconv.FormatInt(participants, 10),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperr.Dependency("failed to render csv", err)
	}
	return buf.Bytes(), nil
}

// ExportVolunteersCSV lists volunteer accounts with their participation
// counters.
func (s *AdminService) ExportVolunteersCSV() ([]byte, error) {
	const exportPageSize = 500

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "email", "name", "phone", "location",
		"approved_registrations", "completed_registrations", "joined_at"})

	for offset := 0; ; offset += exportPageSize {
		users, err := s.users.ListByRole(model.RoleVolunteer, offset, exportPageSize)
		if err != nil {
			return nil, apperr.Dependency("failed to load volunteers", err)
		}
		if len(users) == 0 {
			break
		}
		for i := range users {
			u := &users[i]
			approved, err := s.regs.CountByVolunteerAndStatus(u.ID, model.RegistrationApproved)
			if err != nil {
				return nil, apperr.Dependency("failed to count registrations", err)
			}
			completed, err := s.regs.CountByVolunteerAndStatus(u.ID, model.RegistrationCompleted)
			if err != nil {
				return nil, apperr.Dependency("failed to count registrations", err)
			}
			_ = w.Write([]string{
				strconv.FormatUint(u.ID, 10),
				u.Email,
				u.FullName(),
				u.Phone,
				u.Location,
				strconv.FormatInt(approved, 10),
				strconv.FormatInt(completed, 10),
				u.CreatedAt.Format(time.RFC3339),
			})
		}
		if len(users) < exportPageSize {
			break
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperr.Dependency("failed to render csv", err)
	}
	return buf.Bytes(), nil
}

// DashboardSummary is role-scoped: admins see platform totals, organizers
// their own events, volunteers their own registrations.
func (s *AdminService) DashboardSummary(userID uint64, role model.Role) (map[string]any, error) {
	switch role {
	case model.RoleAdmin:
		return s.adminSummary()
	case model.RoleOrganizer:
		return s.organizerSummary(userID)
	case model.RoleVolunteer:
		return s.volunteerSummary(userID)
	}
	return nil, apperr.Forbidden("unknown role")
}

func (s *AdminService) adminSummary() (map[string]any, error) {
	counts := map[string]any{}
	for _, st := range []model.EventStatus{model.EventPending, model.EventApproved, model.EventRejected} {
		n, err := s.events.CountByStatus(st)
		if err != nil {
			return nil, apperr.Dependency("failed to count events", err)
		}
		counts[fmt.Sprintf("events_%s", st)] = n
	}
	return counts, nil
}

func (s *AdminService) organizerSummary(organizerID uint64) (map[string]any, error) {
	events, err := s.events.ListByOrganizer(organizerID, 0, 1000)
	if err != nil {
		return nil, apperr.Dependency("failed to load events", err)
	}
	now := time.Now()
	byStatus := map[model.EventStatus]int{}
	var participants int64
	for i := range events {
		byStatus[events[i].EffectiveStatus(now)]++
		n, err := s.events.ApprovedParticipantCount(events[i].ID)
		if err != nil {
			return nil, apperr.Dependency("failed to count participants", err)
		}
		participants += n
	}
	return map[string]any{
		"events_total":       len(events),
		"events_by_status":   byStatus,
		"total_participants": participants,
	}, nil
}

func (s *AdminService) volunteerSummary(volunteerID uint64) (map[string]any, error) {
	byStatus := map[model.RegistrationStatus]int64{}
	for _, st := range []model.RegistrationStatus{
		model.RegistrationPending, model.RegistrationApproved,
		model.RegistrationRejected, model.RegistrationCompleted,
	} {
		n, err := s.regs.CountByVolunteerAndStatus(volunteerID, st)
		if err != nil {
			return nil, apperr.Dependency("failed to count registrations", err)
		}
		byStatus[st] = n
	}
	return map[string]any{"registrations_by_status": byStatus}, nil
}
