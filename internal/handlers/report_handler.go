package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/pagination"
	"moneta/internal/services"
)

// ReportHandler handles report generation and retrieval requests.
type ReportHandler struct {
	reportService services.ReportServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// GenerateMonthlyReportRequest represents the monthly report generation payload
type GenerateMonthlyReportRequest struct {
	Year  int  `json:"year" binding:"required,min=2000,max=2100"`
	Month int  `json:"month" binding:"required,min=1,max=12"`
	Force bool `json:"force"`
}

// GenerateWeeklyReportRequest represents the weekly report generation payload
type GenerateWeeklyReportRequest struct {
	WeekStart string `json:"week_start" binding:"required,datetime=2006-01-02"`
	Force     bool   `json:"force"`
}

// MonthlyReportQuery represents the path parameters of a monthly report lookup
type MonthlyReportQuery struct {
	Year  int `form:"year" binding:"required,min=2000,max=2100"`
	Month int `form:"month" binding:"required,min=1,max=12"`
}

// WeeklyReportQuery represents the query parameters of a weekly report lookup
type WeeklyReportQuery struct {
	WeekStart string `form:"week_start" binding:"required,datetime=2006-01-02"`
}

// GenerateMonthly builds or returns the monthly report
// @Summary     Generate a monthly report
// @Description Generate the report for a month. Returns the existing report unless force is set.
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body GenerateMonthlyReportRequest true "Report period"
// @Success     200 {object} SuccessResponse "Monthly report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /reports/monthly [post]
func (h *ReportHandler) GenerateMonthly(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req GenerateMonthlyReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	report, err := h.reportService.GenerateMonthlyReport(c.Request.Context(), userID, req.Year, req.Month, req.Force)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, report)
}

// GetMonthly returns a stored monthly report
// @Summary     Get a monthly report
// @Description Get a previously generated monthly report
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       year query int true "Report year"
// @Param       month query int true "Report month (1-12)"
// @Success     200 {object} SuccessResponse "Monthly report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Report not found"
// @Router      /reports/monthly [get]
func (h *ReportHandler) GetMonthly(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query MonthlyReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	report, err := h.reportService.GetMonthlyReport(userID, query.Year, query.Month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, report)
}

// ListMonthly returns stored monthly reports
// @Summary     List monthly reports
// @Description List the user's monthly reports, newest first
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size (max 100)"
// @Success     200 {object} pagination.PageResponse[models.MonthlyReport] "Monthly reports"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /reports/monthly/list [get]
func (h *ReportHandler) ListMonthly(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondBindError(c, err)
		return
	}
	page.Defaults()

	result, err := h.reportService.ListMonthlyReports(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GenerateWeekly builds or returns the weekly report
// @Summary     Generate a weekly report
// @Description Generate the report for a week. The given date is normalized to its Monday. Returns the existing report unless force is set.
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body GenerateWeeklyReportRequest true "Week start date"
// @Success     200 {object} SuccessResponse "Weekly report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /reports/weekly [post]
func (h *ReportHandler) GenerateWeekly(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req GenerateWeeklyReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	weekStart := parseDate(req.WeekStart)
	if weekStart.After(time.Now().UTC()) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "week_start must not be in the future"))
		return
	}

	report, err := h.reportService.GenerateWeeklyReport(c.Request.Context(), userID, weekStart, req.Force)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, report)
}

// GetWeekly returns a stored weekly report
// @Summary     Get a weekly report
// @Description Get a previously generated weekly report by its week start date
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       week_start query string true "Week start date (YYYY-MM-DD)"
// @Success     200 {object} SuccessResponse "Weekly report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Report not found"
// @Router      /reports/weekly [get]
func (h *ReportHandler) GetWeekly(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query WeeklyReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	report, err := h.reportService.GetWeeklyReport(userID, parseDate(query.WeekStart))
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, report)
}

// ListWeekly returns stored weekly reports
// @Summary     List weekly reports
// @Description List the user's weekly reports, newest first
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size (max 100)"
// @Success     200 {object} pagination.PageResponse[models.WeeklyReport] "Weekly reports"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /reports/weekly/list [get]
func (h *ReportHandler) ListWeekly(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondBindError(c, err)
		return
	}
	page.Defaults()

	result, err := h.reportService.ListWeeklyReports(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
