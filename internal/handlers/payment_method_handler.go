package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/services"
)

// PaymentMethodHandler handles payment-method-related requests.
type PaymentMethodHandler struct {
	paymentMethodService services.PaymentMethodServicer
}

// NewPaymentMethodHandler creates a new PaymentMethodHandler.
func NewPaymentMethodHandler(paymentMethodService services.PaymentMethodServicer) *PaymentMethodHandler {
	return &PaymentMethodHandler{paymentMethodService: paymentMethodService}
}

// CreatePaymentMethodRequest represents the payment method creation payload
type CreatePaymentMethodRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=100"`
	Type      string `json:"type" binding:"required,payment_method_type"`
	IsDefault bool   `json:"is_default"`
}

// UpdatePaymentMethodRequest represents the payment method update payload
type UpdatePaymentMethodRequest struct {
	Name      string `json:"name" binding:"omitempty,min=1,max=100"`
	SortOrder *int   `json:"sort_order" binding:"omitempty,min=0"`
	IsActive  *bool  `json:"is_active"`
}

// ListPaymentMethodsQuery represents the query parameters for listing payment methods
type ListPaymentMethodsQuery struct {
	pagination.PageRequest
	IncludeInactive bool `form:"include_inactive"`
}

// Create creates a new payment method
// @Summary     Create a payment method
// @Description Create a payment method for the authenticated user
// @Tags        payment-methods
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreatePaymentMethodRequest true "Payment method data"
// @Success     201 {object} SuccessResponse "Payment method created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /payment-methods [post]
func (h *PaymentMethodHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreatePaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	method, err := h.paymentMethodService.CreatePaymentMethod(userID, req.Name, models.PaymentMethodType(req.Type), req.IsDefault)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, method)
}

// List returns the user's payment methods
// @Summary     List payment methods
// @Description List the authenticated user's payment methods
// @Tags        payment-methods
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size (max 100)"
// @Param       include_inactive query bool false "Include deactivated payment methods"
// @Success     200 {object} pagination.PageResponse[models.PaymentMethod] "Payment methods"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /payment-methods [get]
func (h *PaymentMethodHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query ListPaymentMethodsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}
	query.Defaults()

	result, err := h.paymentMethodService.GetUserPaymentMethods(userID, query.PageRequest, query.IncludeInactive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get returns a single payment method
// @Summary     Get a payment method
// @Description Get one of the authenticated user's payment methods by ID
// @Tags        payment-methods
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Payment method ID"
// @Success     200 {object} SuccessResponse "Payment method"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Payment method not found"
// @Router      /payment-methods/{id} [get]
func (h *PaymentMethodHandler) Get(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	methodID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	method, err := h.paymentMethodService.GetPaymentMethodByID(userID, methodID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, method)
}

// Update modifies a payment method
// @Summary     Update a payment method
// @Description Update the name, sort order, or active flag of a payment method
// @Tags        payment-methods
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Payment method ID"
// @Param       request body UpdatePaymentMethodRequest true "Fields to update"
// @Success     200 {object} SuccessResponse "Updated payment method"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Payment method not found"
// @Router      /payment-methods/{id} [put]
func (h *PaymentMethodHandler) Update(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	methodID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdatePaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	method, err := h.paymentMethodService.UpdatePaymentMethod(userID, methodID, req.Name, req.SortOrder, req.IsActive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, method)
}

// SetDefault marks a payment method as the user's default
// @Summary     Set default payment method
// @Description Mark a payment method as the default, clearing any previous default
// @Tags        payment-methods
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Payment method ID"
// @Success     200 {object} MessageResponse "Default updated"
// @Failure     400 {object} ErrorResponse "Payment method is inactive"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Payment method not found"
// @Router      /payment-methods/{id}/default [post]
func (h *PaymentMethodHandler) SetDefault(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	methodID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.paymentMethodService.SetDefault(userID, methodID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Default payment method updated"})
}

// Delete removes a payment method, optionally migrating its transactions
// @Summary     Delete a payment method
// @Description Delete a payment method. If it is referenced by transactions, a migrate_to target is required.
// @Tags        payment-methods
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Payment method ID"
// @Param       migrate_to query string false "Payment method to reassign existing transactions to"
// @Success     200 {object} MessageResponse "Payment method deleted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Payment method not found"
// @Failure     409 {object} ErrorResponse "Payment method in use"
// @Router      /payment-methods/{id} [delete]
func (h *PaymentMethodHandler) Delete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	methodID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query DeleteCategoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	var migrateTo *string
	if query.MigrateTo != "" {
		migrateTo = &query.MigrateTo
	}

	migrated, err := h.paymentMethodService.DeletePaymentMethod(c.Request.Context(), userID, methodID, migrateTo)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":               "Payment method deleted",
		"migrated_transactions": migrated,
	})
}
