package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/services"
)

// CategoryHandler handles category-related requests.
type CategoryHandler struct {
	categoryService services.CategoryServicer
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categoryService services.CategoryServicer) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CreateCategoryRequest represents the category creation payload
type CreateCategoryRequest struct {
	Key       string `json:"key" binding:"required,min=2,max=50,lowercase,alphanum"`
	Name      string `json:"name" binding:"required,min=1,max=100"`
	Type      string `json:"type" binding:"required,category_type"`
	Icon      string `json:"icon" binding:"max=50"`
	Color     string `json:"color" binding:"omitempty,hex_color"`
	SortOrder int    `json:"sort_order" binding:"omitempty,min=0"`
}

// UpdateCategoryRequest represents the category update payload
type UpdateCategoryRequest struct {
	Name      string `json:"name" binding:"omitempty,min=1,max=100"`
	Icon      string `json:"icon" binding:"omitempty,max=50"`
	Color     string `json:"color" binding:"omitempty,hex_color"`
	SortOrder *int   `json:"sort_order" binding:"omitempty,min=0"`
	IsActive  *bool  `json:"is_active"`
}

// ListCategoriesQuery represents the query parameters for listing categories
type ListCategoriesQuery struct {
	pagination.PageRequest
	Type            string `form:"type" binding:"omitempty,category_type"`
	IncludeInactive bool   `form:"include_inactive"`
}

// DeleteCategoryQuery represents the query parameters for deleting a category
type DeleteCategoryQuery struct {
	MigrateTo string `form:"migrate_to" binding:"omitempty,uuid"`
}

// Create creates a new category
// @Summary     Create a category
// @Description Create a custom category for the authenticated user
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateCategoryRequest true "Category data"
// @Success     201 {object} SuccessResponse "Category created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Duplicate category key"
// @Router      /categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := h.categoryService.CreateCategory(userID, req.Key, req.Name, models.CategoryType(req.Type), req.Icon, req.Color, req.SortOrder)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, category)
}

// List returns the user's categories
// @Summary     List categories
// @Description List the authenticated user's categories
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size (max 100)"
// @Param       type query string false "Category type (income, expense, or both)"
// @Param       include_inactive query bool false "Include deactivated categories"
// @Success     200 {object} pagination.PageResponse[models.Category] "Categories"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query ListCategoriesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}
	query.Defaults()

	var categoryType *models.CategoryType
	if query.Type != "" {
		ct := models.CategoryType(query.Type)
		categoryType = &ct
	}

	result, err := h.categoryService.GetUserCategories(userID, query.PageRequest, categoryType, query.IncludeInactive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get returns a single category
// @Summary     Get a category
// @Description Get one of the authenticated user's categories by ID
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Success     200 {object} SuccessResponse "Category"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id} [get]
func (h *CategoryHandler) Get(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categoryID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categoryService.GetCategoryByID(userID, categoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, category)
}

// Update modifies a category
// @Summary     Update a category
// @Description Update the name, icon, color, sort order, or active flag of a category
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Param       request body UpdateCategoryRequest true "Fields to update"
// @Success     200 {object} SuccessResponse "Updated category"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categoryID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := h.categoryService.UpdateCategory(userID, categoryID, req.Name, req.Icon, req.Color, req.SortOrder, req.IsActive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, category)
}

// Delete removes a category, optionally migrating its transactions
// @Summary     Delete a category
// @Description Delete a category. If it is referenced by transactions, a migrate_to target category is required.
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Param       migrate_to query string false "Category to reassign existing transactions to"
// @Success     200 {object} MessageResponse "Category deleted"
// @Failure     400 {object} ErrorResponse "Invalid input or system category"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Category in use"
// @Router      /categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categoryID, err := pathID(c, "id")
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

	migrated, err := h.categoryService.DeleteCategory(c.Request.Context(), userID, categoryID, migrateTo)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":               "Category deleted",
		"migrated_transactions": migrated,
	})
}
