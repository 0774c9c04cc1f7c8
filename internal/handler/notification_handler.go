package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-pickup/internal/models"
	"github.com/noah-isme/sma-pickup/pkg/response"
)

type notificationInbox interface {
	Permission() models.PermissionStatus
	Inbox() []models.Notification
}

// NotificationHandler lists delivered local notifications.
type NotificationHandler struct {
	notifications notificationInbox
}

// NewNotificationHandler constructs NotificationHandler.
func NewNotificationHandler(notifications notificationInbox) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List godoc
// @Summary Delivered notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.notifications.Inbox(), map[string]interface{}{"permission": h.notifications.Permission()})
}
