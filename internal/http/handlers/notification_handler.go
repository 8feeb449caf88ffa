// README: Notification inbox and device token handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hatid/internal/http/middleware"
	"hatid/internal/modules/notification"
	"hatid/internal/types"
)

type NotificationHandler struct {
	notifications *notification.Service
}

func NewNotificationHandler(svc *notification.Service) *NotificationHandler {
	return &NotificationHandler{notifications: svc}
}

func (h *NotificationHandler) List(c *gin.Context) {
	list, err := h.notifications.List(c.Request.Context(), middleware.Caller(c).ID)
	if err != nil {
		writeNotificationError(c, err)
		return
	}
	out := make([]notificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, toNotificationResponse(n))
	}
	writeJSON(c, http.StatusOK, gin.H{"results": len(out), "notifications": out})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), types.ID(id), middleware.Caller(c).ID); err != nil {
		writeNotificationError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type tokenReq struct {
	Token string `json:"token"`
}

func (h *NotificationHandler) RegisterToken(c *gin.Context) {
	var req tokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.notifications.RegisterToken(c.Request.Context(), middleware.Caller(c).ID, req.Token); err != nil {
		writeNotificationError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
