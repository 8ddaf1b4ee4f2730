package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/services"
)

// RecurringHandler handles recurring-expense requests.
type RecurringHandler struct {
	recurringService services.RecurringServicer
}

// NewRecurringHandler creates a new RecurringHandler.
func NewRecurringHandler(recurringService services.RecurringServicer) *RecurringHandler {
	return &RecurringHandler{recurringService: recurringService}
}

// CreateRecurringRequest represents the recurring expense creation payload
type CreateRecurringRequest struct {
	Name            string  `json:"name" binding:"required,min=1,max=100"`
	Amount          int64   `json:"amount" binding:"required,gt=0"`
	Currency        string  `json:"currency" binding:"omitempty,iso4217"`
	CategoryID      string  `json:"category_id" binding:"required,uuid"`
	PaymentMethodID *string `json:"payment_method_id" binding:"omitempty,uuid"`
	Frequency       string  `json:"frequency" binding:"required,frequency"`
	DayOfMonth      int     `json:"day_of_month" binding:"omitempty,min=1,max=31"`
	DaysOfWeek      string  `json:"days_of_week" binding:"omitempty,days_of_week"`
	StartDate       string  `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate         *string `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
	SkipHolidays    bool    `json:"skip_holidays"`
}

// UpdateRecurringRequest represents the recurring expense update payload
type UpdateRecurringRequest struct {
	Name            *string `json:"name" binding:"omitempty,min=1,max=100"`
	Amount          *int64  `json:"amount" binding:"omitempty,gt=0"`
	CategoryID      *string `json:"category_id" binding:"omitempty,uuid"`
	PaymentMethodID *string `json:"payment_method_id" binding:"omitempty,uuid"`
	DayOfMonth      *int    `json:"day_of_month" binding:"omitempty,min=1,max=31"`
	DaysOfWeek      *string `json:"days_of_week" binding:"omitempty,days_of_week"`
	EndDate         *string `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
	SkipHolidays    *bool   `json:"skip_holidays"`
}

// SetActiveRequest represents the pause/resume payload
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ListRecurringQuery represents the query parameters for listing recurring expenses
type ListRecurringQuery struct {
	pagination.PageRequest
	ActiveOnly bool `form:"active_only"`
}

// GenerateQuery represents the query parameters for a generation run
type GenerateQuery struct {
	AsOf string `form:"as_of" binding:"omitempty,datetime=2006-01-02"`
}

// Create creates a new recurring expense
// @Summary     Create a recurring expense
// @Description Create a recurring expense with a daily, weekly, or monthly schedule
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateRecurringRequest true "Recurring expense data"
// @Success     201 {object} SuccessResponse "Recurring expense created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category or payment method not found"
// @Router      /recurring [post]
func (h *RecurringHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	input := services.CreateRecurringInput{
		Name:            req.Name,
		Amount:          req.Amount,
		Currency:        req.Currency,
		CategoryID:      req.CategoryID,
		PaymentMethodID: req.PaymentMethodID,
		Frequency:       models.RecurrenceFrequency(req.Frequency),
		DayOfMonth:      req.DayOfMonth,
		DaysOfWeek:      req.DaysOfWeek,
		StartDate:       parseDate(req.StartDate),
		SkipHolidays:    req.SkipHolidays,
	}
	if req.EndDate != nil {
		endDate := parseDate(*req.EndDate)
		input.EndDate = &endDate
	}

	recurring, err := h.recurringService.CreateRecurring(userID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, recurring)
}

// List returns the user's recurring expenses
// @Summary     List recurring expenses
// @Description List the authenticated user's recurring expenses
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size (max 100)"
// @Param       active_only query bool false "Only active recurring expenses"
// @Success     200 {object} pagination.PageResponse[models.RecurringExpense] "Recurring expenses"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /recurring [get]
func (h *RecurringHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query ListRecurringQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}
	query.Defaults()

	result, err := h.recurringService.GetUserRecurring(userID, query.PageRequest, query.ActiveOnly)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get returns a single recurring expense
// @Summary     Get a recurring expense
// @Description Get one of the authenticated user's recurring expenses by ID
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Recurring expense ID"
// @Success     200 {object} SuccessResponse "Recurring expense"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Recurring expense not found"
// @Router      /recurring/{id} [get]
func (h *RecurringHandler) Get(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurringID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurring, err := h.recurringService.GetRecurringByID(userID, recurringID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, recurring)
}

// Update modifies a recurring expense
// @Summary     Update a recurring expense
// @Description Update fields of a recurring expense. Schedule changes recompute the next generation date.
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Recurring expense ID"
// @Param       request body UpdateRecurringRequest true "Fields to update"
// @Success     200 {object} SuccessResponse "Updated recurring expense"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Recurring expense not found"
// @Router      /recurring/{id} [put]
func (h *RecurringHandler) Update(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurringID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	input := services.UpdateRecurringInput{
		Name:            req.Name,
		Amount:          req.Amount,
		CategoryID:      req.CategoryID,
		PaymentMethodID: req.PaymentMethodID,
		DayOfMonth:      req.DayOfMonth,
		DaysOfWeek:      req.DaysOfWeek,
		SkipHolidays:    req.SkipHolidays,
	}
	if req.EndDate != nil {
		endDate := parseDate(*req.EndDate)
		input.EndDate = &endDate
	}

	recurring, err := h.recurringService.UpdateRecurring(userID, recurringID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, recurring)
}

// SetActive pauses or resumes a recurring expense
// @Summary     Pause or resume a recurring expense
// @Description Set the active flag. Resuming recomputes the next generation date from today.
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Recurring expense ID"
// @Param       request body SetActiveRequest true "Active flag"
// @Success     200 {object} SuccessResponse "Updated recurring expense"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Recurring expense not found"
// @Router      /recurring/{id}/active [post]
func (h *RecurringHandler) SetActive(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurringID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	recurring, err := h.recurringService.SetActive(userID, recurringID, *req.IsActive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, recurring)
}

// Delete removes a recurring expense
// @Summary     Delete a recurring expense
// @Description Delete a recurring expense. Previously generated transactions are kept.
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Recurring expense ID"
// @Success     200 {object} MessageResponse "Recurring expense deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Recurring expense not found"
// @Router      /recurring/{id} [delete]
func (h *RecurringHandler) Delete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurringID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.recurringService.DeleteRecurring(userID, recurringID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Recurring expense deleted"})
}

// Generate runs the recurring generator for the authenticated user
// @Summary     Generate due transactions
// @Description Generate transactions for all of the user's recurring expenses that are due, catching up missed occurrences
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       as_of query string false "Generate up to this date (YYYY-MM-DD), defaults to today"
// @Success     200 {object} SuccessResponse "Generation result"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /recurring/generate [post]
func (h *RecurringHandler) Generate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query GenerateQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	asOf := time.Now().UTC()
	if query.AsOf != "" {
		asOf = parseDate(query.AsOf)
	}

	result, err := h.recurringService.GenerateDue(c.Request.Context(), userID, asOf)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, result)
}

// Logs returns the generation history of a recurring expense
// @Summary     List generation logs
// @Description List the generation log entries of a recurring expense, newest first
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Recurring expense ID"
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size (max 100)"
// @Success     200 {object} pagination.PageResponse[models.RecurringGenerationLog] "Generation logs"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Recurring expense not found"
// @Router      /recurring/{id}/logs [get]
func (h *RecurringHandler) Logs(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurringID, err := pathID(c, "id")
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

	result, err := h.recurringService.GetGenerationLogs(userID, recurringID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
