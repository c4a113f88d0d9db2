package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"volunteerhub/internal/middleware"
	"volunteerhub/internal/model"
	"volunteerhub/internal/service"
)

type RegistrationHandler struct {
	svc *service.RegistrationService
}

func NewRegistrationHandler(svc *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

type registrationView struct {
	ID              uint64                   `json:"id"`
	EventID         uint64                   `json:"event_id"`
	VolunteerID     uint64                   `json:"volunteer_id"`
	Status          model.RegistrationStatus `json:"status"`
	RegisteredAt    time.Time                `json:"registered_at"`
	RejectionReason string                   `json:"rejection_reason,omitempty"`
	Rating          *int                     `json:"rating,omitempty"`
	Feedback        string                   `json:"feedback,omitempty"`
	Event           *eventView               `json:"event,omitempty"`
	Volunteer       *userView                `json:"volunteer,omitempty"`
}

func toRegistrationView(r *model.Registration, now time.Time) registrationView {
	v := registrationView{
		ID:              r.ID,
		EventID:         r.EventID,
		VolunteerID:     r.VolunteerID,
		Status:          r.Status,
		RegisteredAt:    r.RegisteredAt,
		RejectionReason: r.RejectionReason,
		Rating:          r.Rating,
		Feedback:        r.Feedback,
	}
	if r.Event != nil {
		ev := toEventView(r.Event, now)
		v.Event = &ev
	}
	if r.Volunteer != nil {
		uv := toUserView(r.Volunteer)
		v.Volunteer = &uv
	}
	return v
}

func toRegistrationViews(list []model.Registration, now time.Time) []registrationView {
	out := make([]registrationView, 0, len(list))
	for i := range list {
		out = append(out, toRegistrationView(&list[i], now))
	}
	return out
}

// Register signs the caller up for an event.
func (h *RegistrationHandler) Register(c *gin.Context) {
	eventID, ok := idParam(c, "id")
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	reg, err := h.svc.Register(c.Request.Context(), user.ID, eventID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"registration": toRegistrationView(reg, time.Now())})
}

func (h *RegistrationHandler) Decide(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req decisionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "action is required")
		return
	}

	user := middleware.CurrentUser(c)
	reg, err := h.svc.Decide(c.Request.Context(), user.ID, user.Role, id, req.Action, req.Reason)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registration": toRegistrationView(reg, time.Now())})
}

func (h *RegistrationHandler) Complete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	reg, err := h.svc.Complete(c.Request.Context(), user.ID, user.Role, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registration": toRegistrationView(reg, time.Now())})
}

func (h *RegistrationHandler) Rate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Rating   int    `json:"rating" binding:"required"`
		Feedback string `json:"feedback"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "rating is required")
		return
	}

	user := middleware.CurrentUser(c)
	reg, err := h.svc.Rate(c.Request.Context(), user.ID, id, req.Rating, req.Feedback)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registration": toRegistrationView(reg, time.Now())})
}

func (h *RegistrationHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	reg, err := h.svc.Get(user.ID, user.Role, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registration": toRegistrationView(reg, time.Now())})
}

func (h *RegistrationHandler) MyRegistrations(c *gin.Context) {
	user := middleware.CurrentUser(c)
	page, size := pageParams(c)
	list, err := h.svc.MyRegistrations(user.ID, page, size)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registrations": toRegistrationViews(list, time.Now())})
}

// EventRegistrations lists everyone registered for one event.
func (h *RegistrationHandler) EventRegistrations(c *gin.Context) {
	eventID, ok := idParam(c, "id")
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	page, size := pageParams(c)
	list, err := h.svc.EventRegistrations(user.ID, user.Role, eventID, page, size)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registrations": toRegistrationViews(list, time.Now())})
}
