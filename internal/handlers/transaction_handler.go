package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/services"
)

const dateLayout = "2006-01-02"

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// CreateTransactionRequest represents the transaction creation payload
type CreateTransactionRequest struct {
	Type            string  `json:"type" binding:"required,transaction_type"`
	Amount          int64   `json:"amount" binding:"required,gt=0"`
	Currency        string  `json:"currency" binding:"omitempty,iso4217"`
	Date            string  `json:"date" binding:"required,datetime=2006-01-02"`
	CategoryID      *string `json:"category_id" binding:"omitempty,uuid"`
	PaymentMethodID *string `json:"payment_method_id" binding:"omitempty,uuid"`
	Note            string  `json:"note" binding:"max=500"`
	Merchant        string  `json:"merchant" binding:"max=255"`
	Subcategory     string  `json:"subcategory" binding:"max=100"`
	Product         string  `json:"product" binding:"max=255"`
}

// UpdateTransactionRequest represents the transaction update payload.
// Omitted fields are left unchanged.
type UpdateTransactionRequest struct {
	Amount          *int64  `json:"amount" binding:"omitempty,gt=0"`
	Currency        *string `json:"currency" binding:"omitempty,iso4217"`
	Date            *string `json:"date" binding:"omitempty,datetime=2006-01-02"`
	CategoryID      *string `json:"category_id" binding:"omitempty,uuid"`
	PaymentMethodID *string `json:"payment_method_id" binding:"omitempty,uuid"`
	Note            *string `json:"note" binding:"omitempty,max=500"`
	Merchant        *string `json:"merchant" binding:"omitempty,max=255"`
	Subcategory     *string `json:"subcategory" binding:"omitempty,max=100"`
	Product         *string `json:"product" binding:"omitempty,max=255"`
}

// ListTransactionsQuery represents the query parameters for listing transactions
type ListTransactionsQuery struct {
	pagination.PageRequest
	From            string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To              string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Type            string `form:"type" binding:"omitempty,transaction_type"`
	CategoryID      string `form:"category_id" binding:"omitempty,uuid"`
	PaymentMethodID string `form:"payment_method_id" binding:"omitempty,uuid"`
	MinAmount       *int64 `form:"min_amount" binding:"omitempty,min=0"`
	MaxAmount       *int64 `form:"max_amount" binding:"omitempty,min=0"`
	Search          string `form:"search" binding:"omitempty,max=255"`
	IncludeDeleted  bool   `form:"include_deleted"`
}

// StatsQuery represents the query parameters for transaction statistics
type StatsQuery struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

func parseDate(s string) time.Time {
	t, _ := time.Parse(dateLayout, s)
	return t
}

// Create records a new transaction
// @Summary     Create a transaction
// @Description Record a new income or expense transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction data"
// @Success     201 {object} SuccessResponse "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category or payment method not found"
// @Router      /transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	transaction, err := h.transactionService.CreateTransaction(c.Request.Context(), userID, services.CreateTransactionInput{
		Type:            models.TransactionType(req.Type),
		Amount:          req.Amount,
		Currency:        req.Currency,
		Date:            parseDate(req.Date),
		CategoryID:      req.CategoryID,
		PaymentMethodID: req.PaymentMethodID,
		Note:            req.Note,
		Merchant:        req.Merchant,
		Subcategory:     req.Subcategory,
		Product:         req.Product,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, transaction)
}

// List returns the user's transactions
// @Summary     List transactions
// @Description List the authenticated user's transactions with filters and pagination
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size (max 100)"
// @Param       from query string false "Start date (YYYY-MM-DD)"
// @Param       to query string false "End date (YYYY-MM-DD)"
// @Param       type query string false "Transaction type (income or expense)"
// @Param       category_id query string false "Filter by category"
// @Param       payment_method_id query string false "Filter by payment method"
// @Param       min_amount query int false "Minimum amount in cents"
// @Param       max_amount query int false "Maximum amount in cents"
// @Param       search query string false "Search in note and merchant"
// @Param       include_deleted query bool false "Include soft-deleted transactions"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query ListTransactionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}
	query.Defaults()

	filter := services.TransactionFilter{
		MinAmount:      query.MinAmount,
		MaxAmount:      query.MaxAmount,
		Search:         query.Search,
		IncludeDeleted: query.IncludeDeleted,
	}
	if query.From != "" {
		from := parseDate(query.From)
		filter.FromDate = &from
	}
	if query.To != "" {
		to := parseDate(query.To)
		filter.ToDate = &to
	}
	if query.Type != "" {
		txType := models.TransactionType(query.Type)
		filter.Type = &txType
	}
	if query.CategoryID != "" {
		filter.CategoryID = &query.CategoryID
	}
	if query.PaymentMethodID != "" {
		filter.PaymentMethodID = &query.PaymentMethodID
	}

	result, err := h.transactionService.GetUserTransactions(userID, query.PageRequest, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get returns a single transaction
// @Summary     Get a transaction
// @Description Get one of the authenticated user's transactions by ID
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} SuccessResponse "Transaction"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, transaction)
}

// Update modifies a transaction
// @Summary     Update a transaction
// @Description Update fields of one of the authenticated user's transactions
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to update"
// @Success     200 {object} SuccessResponse "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) Update(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	input := services.UpdateTransactionInput{
		Amount:          req.Amount,
		Currency:        req.Currency,
		CategoryID:      req.CategoryID,
		PaymentMethodID: req.PaymentMethodID,
		Note:            req.Note,
		Merchant:        req.Merchant,
		Subcategory:     req.Subcategory,
		Product:         req.Product,
	}
	if req.Date != nil {
		date := parseDate(*req.Date)
		input.Date = &date
	}

	transaction, err := h.transactionService.UpdateTransaction(c.Request.Context(), userID, transactionID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, transaction)
}

// Delete soft-deletes a transaction
// @Summary     Delete a transaction
// @Description Soft-delete one of the authenticated user's transactions
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(c.Request.Context(), userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}

// Restore reverses a soft delete
// @Summary     Restore a transaction
// @Description Restore a previously soft-deleted transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} SuccessResponse "Restored transaction"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id}/restore [post]
func (h *TransactionHandler) Restore(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.RestoreTransaction(c.Request.Context(), userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, transaction)
}

// Purge permanently removes a soft-deleted transaction
// @Summary     Purge a transaction
// @Description Permanently delete a soft-deleted transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction purged"
// @Failure     400 {object} ErrorResponse "Transaction is not deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id}/purge [delete]
func (h *TransactionHandler) Purge(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.PurgeTransaction(c.Request.Context(), userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Transaction purged"})
}

// Stats returns aggregate transaction figures
// @Summary     Transaction statistics
// @Description Aggregate income, expenses, and cashflow over a date range
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       from query string false "Start date (YYYY-MM-DD), defaults to the start of the current month"
// @Param       to query string false "End date (YYYY-MM-DD), defaults to today"
// @Success     200 {object} SuccessResponse "Statistics"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions/stats [get]
func (h *TransactionHandler) Stats(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query StatsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := now
	if query.From != "" {
		from = parseDate(query.From)
	}
	if query.To != "" {
		to = parseDate(query.To)
	}
	if to.Before(from) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "to must not be before from"))
		return
	}

	stats, err := h.transactionService.GetStats(userID, from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, stats)
}
