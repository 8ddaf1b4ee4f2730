package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/events"
	"moneta/internal/logger"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// defaultCategories are seeded for every new user. They are marked as system
// categories and cannot be deleted.
var defaultCategories = []models.Category{
	{Key: "food", Name: "Food & Dining", Type: models.CategoryTypeExpense, Icon: "utensils", Color: "#E74C3C", SortOrder: 1},
	{Key: "transport", Name: "Transport", Type: models.CategoryTypeExpense, Icon: "car", Color: "#3498DB", SortOrder: 2},
	{Key: "housing", Name: "Housing", Type: models.CategoryTypeExpense, Icon: "home", Color: "#9B59B6", SortOrder: 3},
	{Key: "utilities", Name: "Utilities", Type: models.CategoryTypeExpense, Icon: "bolt", Color: "#F39C12", SortOrder: 4},
	{Key: "entertainment", Name: "Entertainment", Type: models.CategoryTypeExpense, Icon: "film", Color: "#1ABC9C", SortOrder: 5},
	{Key: "health", Name: "Health", Type: models.CategoryTypeExpense, Icon: "heart", Color: "#E91E63", SortOrder: 6},
	{Key: "shopping", Name: "Shopping", Type: models.CategoryTypeExpense, Icon: "bag", Color: "#FF5722", SortOrder: 7},
	{Key: "salary", Name: "Salary", Type: models.CategoryTypeIncome, Icon: "wallet", Color: "#2ECC71", SortOrder: 8},
	{Key: "other", Name: "Other", Type: models.CategoryTypeBoth, Icon: "dots", Color: "#95A5A6", SortOrder: 9},
}

// categoryService handles category-related business logic.
type categoryService struct {
	db        *gorm.DB
	publisher events.Publisher
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB, publisher events.Publisher) CategoryServicer {
	return &categoryService{db: db, publisher: publisher}
}

// CreateCategory creates a new custom category
func (s *categoryService) CreateCategory(userID, key, name string, categoryType models.CategoryType, icon, color string, sortOrder int) (*models.Category, error) {
	// Validate input
	if key == "" || name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category key and name are required")
	}

	// Key must be unique per user, including soft-deleted rows that still
	// occupy the unique index
	var count int64
	if err := s.db.Unscoped().Model(&models.Category{}).
		Where("user_id = ? AND key = ?", userID, key).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateCategoryKey
	}

	category := &models.Category{
		UserID:    userID,
		Key:       key,
		Name:      name,
		Type:      categoryType,
		Icon:      icon,
		Color:     color,
		SortOrder: sortOrder,
		IsActive:  true,
	}

	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return category, nil
}

// EnsureDefaults seeds the system categories for a user if they are missing.
// Called on signup; safe to call again.
func (s *categoryService) EnsureDefaults(userID string) error {
	var existing []string
	if err := s.db.Model(&models.Category{}).
		Where("user_id = ? AND is_system = ?", userID, true).
		Pluck("key", &existing).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	have := make(map[string]bool, len(existing))
	for _, key := range existing {
		have[key] = true
	}

	for _, def := range defaultCategories {
		if have[def.Key] {
			continue
		}
		category := def
		category.UserID = userID
		category.IsSystem = true
		category.IsActive = true
		if err := s.db.Create(&category).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return nil
}

// GetUserCategories retrieves a paginated list of categories for a user.
func (s *categoryService) GetUserCategories(userID string, page pagination.PageRequest, categoryType *models.CategoryType, includeInactive bool) (*pagination.PageResponse[models.Category], error) {
	page.Defaults()

	base := s.db.Model(&models.Category{}).Where("user_id = ?", userID)
	if categoryType != nil {
		base = base.Where("type = ? OR type = ?", *categoryType, models.CategoryTypeBoth)
	}
	if !includeInactive {
		base = base.Where("is_active = ?", true)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var categories []models.Category
	if err := base.Order("sort_order ASC, name ASC").Scopes(pagination.Paginate(page)).Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(categories, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetCategoryByID retrieves a category by ID for a specific user
func (s *categoryService) GetCategoryByID(userID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// UpdateCategory updates an existing category
func (s *categoryService) UpdateCategory(userID, categoryID, name, icon, color string, sortOrder *int, isActive *bool) (*models.Category, error) {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return nil, err
	}

	// Update fields if provided
	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if icon != "" {
		updates["icon"] = icon
	}
	if color != "" {
		updates["color"] = color
	}
	if sortOrder != nil {
		updates["sort_order"] = *sortOrder
	}
	if isActive != nil {
		if category.IsSystem && !*isActive {
			return nil, apperrors.ErrSystemCategory
		}
		updates["is_active"] = *isActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(category).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return category, nil
}

// DeleteCategory removes a category. When migrateTo is set, referencing
// transactions and recurring expenses are moved to the target category first
// and the number of moved transactions is returned. Without a target, deletion
// is rejected while live transactions still reference the category.
func (s *categoryService) DeleteCategory(ctx context.Context, userID, categoryID string, migrateTo *string) (int64, error) {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return 0, err
	}

	if category.IsSystem {
		return 0, apperrors.ErrSystemCategory
	}

	var target *models.Category
	if migrateTo != nil {
		if *migrateTo == categoryID {
			return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "cannot migrate a category to itself")
		}
		target, err = s.GetCategoryByID(userID, *migrateTo)
		if err != nil {
			return 0, err
		}
	}

	var migrated int64
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Soft-deleted transactions count and migrate too; a restore must not
		// bring back a reference to the deleted category
		if target == nil {
			var refs int64
			if err := tx.Unscoped().Model(&models.Transaction{}).
				Where("user_id = ? AND category_id = ?", userID, categoryID).
				Count(&refs).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if refs > 0 {
				return apperrors.ErrCategoryInUse
			}
		} else {
			result := tx.Unscoped().Model(&models.Transaction{}).
				Where("user_id = ? AND category_id = ?", userID, categoryID).
				Update("category_id", target.ID)
			if result.Error != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
			}
			migrated = result.RowsAffected

			if err := tx.Model(&models.RecurringExpense{}).
				Where("user_id = ? AND category_id = ?", userID, categoryID).
				Update("category_id", target.ID).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		// Budgets for the deleted category are removed rather than migrated
		// to avoid colliding with an existing budget on the target
		if err := tx.Where("user_id = ? AND category_id = ?", userID, categoryID).
			Delete(&models.Budget{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := tx.Delete(category).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := s.publisher.Publish(ctx, events.New(events.CategoryChanged, userID, categoryID)); err != nil {
		logger.Get().Warnw("event publish failed",
			"type", events.CategoryChanged,
			"entity_id", categoryID,
			"error", err.Error(),
		)
	}

	return migrated, nil
}
