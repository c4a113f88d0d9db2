package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"volunteerhub/internal/middleware"
	"volunteerhub/internal/model"
	"volunteerhub/internal/service"
)

type AdminHandler struct {
	events *service.EventService
	auth   *service.AuthService
	admin  *service.AdminService
}

func NewAdminHandler(events *service.EventService, auth *service.AuthService, admin *service.AdminService) *AdminHandler {
	return &AdminHandler{events: events, auth: auth, admin: admin}
}

type decisionReq struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason"`
}

// ListPending is the review queue, oldest submissions first, with how long
// each has been waiting.
func (h *AdminHandler) ListPending(c *gin.Context) {
	page, size := pageParams(c)
	list, err := h.events.ListPending(page, size)
	if err != nil {
		respondErr(c, err)
		return
	}

	now := time.Now()
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, gin.H{
			"event":        toEventView(&list[i], now),
			"pending_days": int(now.Sub(list[i].CreatedAt).Hours() / 24),
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

func (h *AdminHandler) DecideEvent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req decisionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "action is required")
		return
	}

	admin := middleware.CurrentUser(c)
	event, err := h.events.Decide(c.Request.Context(), admin.ID, id, req.Action, req.Reason)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": toEventView(event, time.Now())})
}

func (h *AdminHandler) DecideEventsBulk(c *gin.Context) {
	var req struct {
		EventIDs []uint64 `json:"event_ids" binding:"required"`
		Action   string   `json:"action" binding:"required"`
		Reason   string   `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "event_ids and action are required")
		return
	}

	admin := middleware.CurrentUser(c)
	result, err := h.events.DecideBulk(c.Request.Context(), admin.ID, req.EventIDs, req.Action, req.Reason)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// History lists decided events, most recent decision first.
func (h *AdminHandler) History(c *gin.Context) {
	var status model.EventStatus
	switch c.Query("status") {
	case "":
	case "approved":
		status = model.EventApproved
	case "rejected":
		status = model.EventRejected
	default:
		badRequest(c, `status must be "approved" or "rejected"`)
		return
	}

	page, size := pageParams(c)
	list, total, err := h.events.History(status, page, size)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"events": toEventViews(list, time.Now()),
		"total":  total,
	})
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req struct {
		service.RegisterInput
		Role model.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	user, err := h.auth.CreatePrivileged(req.RegisterInput, req.Role)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": toUserView(user)})
}

func (h *AdminHandler) ExportEvents(c *gin.Context) {
	data, err := h.admin.ExportEventsCSV()
	if err != nil {
		respondErr(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="events.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (h *AdminHandler) ExportVolunteers(c *gin.Context) {
	data, err := h.admin.ExportVolunteersCSV()
	if err != nil {
		respondErr(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="volunteers.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// Dashboard serves every role; the payload shape depends on who asks.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	user := middleware.CurrentUser(c)
	summary, err := h.admin.DashboardSummary(user.ID, user.Role)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
