package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/torao/kazzla/internal/middleware"
	"github.com/torao/kazzla/internal/schemas"
	"github.com/torao/kazzla/internal/services"
	"github.com/torao/kazzla/internal/utils"
)

type NotificationHdl interface {
	GetNotifications(c *gin.Context)
	GetUnreadCount(c *gin.Context)
	MarkRead(c *gin.Context)
}

type NotificationHandler struct {
	NotificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) NotificationHdl {
	return &NotificationHandler{NotificationService: notificationService}
}

// GetNotifications returns one page of the signed-in account's notifications.
func (handler *NotificationHandler) GetNotifications(c *gin.Context) {
	offset, limit := utils.ParsePaginationParams(c)

	notifications, total, err := handler.NotificationService.List(c.Request.Context(), middleware.Session(c), offset, limit)
	if err != nil {
		utils.WriteAndLogServiceError(c, err)
		return
	}

	records := make([]schemas.NotificationDTO, 0, len(notifications))
	for i := range notifications {
		records = append(records, newNotificationDTO(&notifications[i]))
	}
	utils.SendPaginatedResponse(c, records, offset, limit, total)
}

func (handler *NotificationHandler) GetUnreadCount(c *gin.Context) {
	unread, err := handler.NotificationService.UnreadCount(c.Request.Context(), middleware.Session(c))
	if err != nil {
		utils.WriteAndLogServiceError(c, err)
		return
	}
	utils.WriteAndLogResponse(c, &schemas.UnreadCountDTO{Unread: unread}, http.StatusOK)
}

func (handler *NotificationHandler) MarkRead(c *gin.Context) {
	markReadRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.MarkReadRequest)

	if _, err := handler.NotificationService.MarkRead(c.Request.Context(), middleware.Session(c), markReadRequest.NotificationIds); err != nil {
		utils.WriteAndLogServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
