package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moneta/internal/pagination"
	"moneta/internal/services"
)

// SystemLogHandler handles system log queries.
type SystemLogHandler struct {
	systemLogService services.SystemLogServicer
}

// NewSystemLogHandler creates a new SystemLogHandler.
func NewSystemLogHandler(systemLogService services.SystemLogServicer) *SystemLogHandler {
	return &SystemLogHandler{systemLogService: systemLogService}
}

// ListSystemLogsQuery represents the query parameters for listing system logs
type ListSystemLogsQuery struct {
	pagination.PageRequest
	Level    string `form:"level" binding:"omitempty,oneof=debug info warn error"`
	Category string `form:"category" binding:"omitempty,max=50"`
	From     string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To       string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// List returns system log entries
// @Summary     List system logs
// @Description List system log entries with optional level, category, and date filters, newest first
// @Tags        system
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size (max 100)"
// @Param       level query string false "Log level (debug, info, warn, error)"
// @Param       category query string false "Log category"
// @Param       from query string false "Start date (YYYY-MM-DD)"
// @Param       to query string false "End date (YYYY-MM-DD)"
// @Success     200 {object} pagination.PageResponse[models.SystemLog] "System logs"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /system/logs [get]
func (h *SystemLogHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query ListSystemLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}
	query.Defaults()

	filter := services.SystemLogFilter{
		Level:    query.Level,
		Category: query.Category,
		UserID:   userID,
	}
	if query.From != "" {
		from := parseDate(query.From)
		filter.FromDate = &from
	}
	if query.To != "" {
		to := parseDate(query.To)
		filter.ToDate = &to
	}

	result, err := h.systemLogService.ListLogs(filter, query.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
