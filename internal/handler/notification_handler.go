package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"volunteerhub/internal/middleware"
	"volunteerhub/internal/service"
)

type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// Subscribe registers the browser's push subscription for the caller.
func (h *NotificationHandler) Subscribe(c *gin.Context) {
	var req struct {
		Endpoint string `json:"endpoint" binding:"required"`
		Keys     struct {
			P256dh string `json:"p256dh" binding:"required"`
			Auth   string `json:"auth" binding:"required"`
		} `json:"keys" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "endpoint and keys are required")
		return
	}

	user := middleware.CurrentUser(c)
	if err := h.svc.Subscribe(user.ID, req.Endpoint, req.Keys.P256dh, req.Keys.Auth); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"msg": "ok"})
}

// PublicKey hands the client the VAPID application server key; 404 when
// push is not configured on this deployment.
func (h *NotificationHandler) PublicKey(c *gin.Context) {
	key, err := h.svc.VAPIDPublicKey()
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": key})
}

func (h *NotificationHandler) Unsubscribe(c *gin.Context) {
	var req struct {
		Endpoint string `json:"endpoint" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "endpoint is required")
		return
	}

	user := middleware.CurrentUser(c)
	if err := h.svc.Unsubscribe(user.ID, req.Endpoint); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

func (h *NotificationHandler) Status(c *gin.Context) {
	user := middleware.CurrentUser(c)
	subscribed, err := h.svc.HasSubscriptions(user.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscribed": subscribed})
}

func (h *NotificationHandler) History(c *gin.Context) {
	user := middleware.CurrentUser(c)
	page, size := pageParams(c)
	list, total, err := h.svc.History(c.Request.Context(), user.ID, page, size)
	if err != nil {
		respondErr(c, err)
		return
	}

	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, gin.H{
			"id":      list[i].ID,
			"kind":    list[i].Kind,
			"title":   list[i].Title,
			"body":    list[i].Body,
			"sent_at": list[i].UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out, "total": total})
}
