package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moneta/internal/pagination"
	"moneta/internal/services"
)

// BudgetHandler handles budget-related requests.
type BudgetHandler struct {
	budgetService services.BudgetServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService services.BudgetServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

// UpsertBudgetRequest represents the budget create/update payload.
// A nil category_id targets the whole-month budget.
type UpsertBudgetRequest struct {
	Year           int      `json:"year" binding:"required,min=2000,max=2100"`
	Month          int      `json:"month" binding:"required,min=1,max=12"`
	CategoryID     *string  `json:"category_id" binding:"omitempty,uuid"`
	Amount         int64    `json:"amount" binding:"required,gt=0"`
	AlertThreshold *float64 `json:"alert_threshold" binding:"omitempty,gt=0,lte=1"`
}

// BudgetPeriodQuery represents the query parameters identifying a budget month
type BudgetPeriodQuery struct {
	Year  int `form:"year" binding:"required,min=2000,max=2100"`
	Month int `form:"month" binding:"required,min=1,max=12"`
}

// ListBudgetsQuery represents the query parameters for listing budgets
type ListBudgetsQuery struct {
	pagination.PageRequest
	Year  int `form:"year" binding:"required,min=2000,max=2100"`
	Month int `form:"month" binding:"required,min=1,max=12"`
}

// Upsert creates or updates a budget
// @Summary     Set a budget
// @Description Create or update the budget for a month and category. Omit category_id for the whole-month budget.
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UpsertBudgetRequest true "Budget data"
// @Success     200 {object} SuccessResponse "Budget stored"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /budgets [put]
func (h *BudgetHandler) Upsert(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpsertBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	budget, err := h.budgetService.UpsertBudget(c.Request.Context(), userID, req.Year, req.Month, req.CategoryID, req.Amount, req.AlertThreshold)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, budget)
}

// List returns the budgets of a month
// @Summary     List budgets
// @Description List the authenticated user's budgets for a month
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       year query int true "Budget year"
// @Param       month query int true "Budget month (1-12)"
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size (max 100)"
// @Success     200 {object} pagination.PageResponse[models.Budget] "Budgets"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /budgets [get]
func (h *BudgetHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query ListBudgetsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}
	query.Defaults()

	result, err := h.budgetService.GetUserBudgets(userID, query.Year, query.Month, query.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Delete removes a budget
// @Summary     Delete a budget
// @Description Delete a budget so the period and category slot can be reused
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} MessageResponse "Budget deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id} [delete]
func (h *BudgetHandler) Delete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.budgetService.DeleteBudget(c.Request.Context(), userID, budgetID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Budget deleted"})
}

// Status returns spending vs budget for a month
// @Summary     Budget status
// @Description Compare actual spending against each budget of a month, including alert flags
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       year query int true "Budget year"
// @Param       month query int true "Budget month (1-12)"
// @Success     200 {object} SuccessResponse "Budget status"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /budgets/status [get]
func (h *BudgetHandler) Status(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query BudgetPeriodQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	status, err := h.budgetService.GetBudgetStatus(userID, query.Year, query.Month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, status)
}

// Suggest proposes budget amounts from recent spending
// @Summary     Suggest budgets
// @Description Propose per-category budget amounts based on the trailing three months of spending
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       year query int true "Budget year"
// @Param       month query int true "Budget month (1-12)"
// @Success     200 {object} SuccessResponse "Budget suggestions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /budgets/suggestions [get]
func (h *BudgetHandler) Suggest(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query BudgetPeriodQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	suggestions, err := h.budgetService.SuggestBudgets(userID, query.Year, query.Month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, suggestions)
}

// ApplySuggestions stores suggested budgets that do not collide with existing ones
// @Summary     Apply budget suggestions
// @Description Create budgets from suggestions, skipping categories that already have a budget for the month
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       year query int true "Budget year"
// @Param       month query int true "Budget month (1-12)"
// @Success     201 {object} SuccessResponse "Created budgets"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /budgets/suggestions/apply [post]
func (h *BudgetHandler) ApplySuggestions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query BudgetPeriodQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	budgets, err := h.budgetService.ApplySuggestions(c.Request.Context(), userID, query.Year, query.Month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, budgets)
}
