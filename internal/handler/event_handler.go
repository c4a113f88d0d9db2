package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"volunteerhub/internal/middleware"
	"volunteerhub/internal/model"
	"volunteerhub/internal/service"
)

type EventHandler struct {
	svc *service.EventService
}

func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// Categories lists the accepted event categories for the submission form.
func (h *EventHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": model.EventCategories})
}

type eventView struct {
	ID              uint64            `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Location        string            `json:"location"`
	StartDate       time.Time         `json:"start_date"`
	EndDate         time.Time         `json:"end_date"`
	Capacity        *int              `json:"capacity"`
	Category        string            `json:"category"`
	Status          model.EventStatus `json:"status"`
	OrganizerID     uint64            `json:"organizer_id"`
	ApprovedAt      *time.Time        `json:"approved_at,omitempty"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

func toEventView(e *model.Event, now time.Time) eventView {
	return eventView{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		Location:        e.Location,
		StartDate:       e.StartDate,
		EndDate:         e.EndDate,
		Capacity:        e.Capacity,
		Category:        e.Category,
		Status:          e.EffectiveStatus(now),
		OrganizerID:     e.OrganizerID,
		ApprovedAt:      e.ApprovedAt,
		RejectionReason: e.RejectionReason,
		CreatedAt:       e.CreatedAt,
	}
}

func toEventViews(events []model.Event, now time.Time) []eventView {
	out := make([]eventView, 0, len(events))
	for i := range events {
		out = append(out, toEventView(&events[i], now))
	}
	return out
}

func (h *EventHandler) Submit(c *gin.Context) {
	var req service.EventDraft
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	user := middleware.CurrentUser(c)
	event, err := h.svc.Submit(c.Request.Context(), user.ID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": toEventView(event, time.Now())})
}

// Browse lists approved events for any authenticated user.
func (h *EventHandler) Browse(c *gin.Context) {
	page, size := pageParams(c)
	list, err := h.svc.Browse(page, size)
	if err != nil {
		respondErr(c, err)
		return
	}

	now := time.Now()
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, gin.H{
			"event":             toEventView(&list[i].Event, now),
			"participant_count": list[i].ParticipantCount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

func (h *EventHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	event, err := h.svc.Get(id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": toEventView(event, time.Now())})
}

func (h *EventHandler) MyEvents(c *gin.Context) {
	user := middleware.CurrentUser(c)
	page, size := pageParams(c)
	list, err := h.svc.MyEvents(user.ID, page, size)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": toEventViews(list, time.Now())})
}
