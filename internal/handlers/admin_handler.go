package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/torao/kazzla/internal/middleware"
	"github.com/torao/kazzla/internal/schemas"
	"github.com/torao/kazzla/internal/services"
	"github.com/torao/kazzla/internal/utils"
)

type AdminHdl interface {
	GetEventLogs(c *gin.Context)
}

type AdminHandler struct {
	AdminService *services.AdminService
}

func NewAdminHandler(adminService *services.AdminService) AdminHdl {
	return &AdminHandler{AdminService: adminService}
}

// GetEventLogs pages through the event log. Only accounts with the admin permission may read it.
func (handler *AdminHandler) GetEventLogs(c *gin.Context) {
	offset, limit := utils.ParsePaginationParams(c)

	entries, total, err := handler.AdminService.EventLogs(c.Request.Context(), middleware.Session(c), offset, limit)
	if err != nil {
		utils.WriteAndLogServiceError(c, err)
		return
	}

	records := make([]schemas.EventLogDTO, 0, len(entries))
	for i := range entries {
		records = append(records, newEventLogDTO(&entries[i]))
	}
	utils.SendPaginatedResponse(c, records, offset, limit, total)
}
