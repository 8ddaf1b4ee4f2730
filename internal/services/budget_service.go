package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/events"
	"moneta/internal/logger"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

const defaultAlertThreshold = 0.8

// suggestionWindowMonths is the trailing window used to derive budget
// suggestions from actual spending.
const suggestionWindowMonths = 3

// budgetService handles budget-related business logic.
type budgetService struct {
	db        *gorm.DB
	publisher events.Publisher
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, publisher events.Publisher) BudgetServicer {
	return &budgetService{db: db, publisher: publisher}
}

// budgetScope narrows a query to one budget slot. A nil category matches the
// whole-month budget.
func budgetScope(query *gorm.DB, userID string, year, month int, categoryID *string) *gorm.DB {
	query = query.Where("user_id = ? AND year = ? AND month = ?", userID, year, month)
	if categoryID == nil {
		return query.Where("category_id IS NULL")
	}
	return query.Where("category_id = ?", *categoryID)
}

// UpsertBudget creates or replaces the budget for a period and category slot.
// Setting an amount on an existing slot overwrites it and clears the
// suggestion marker.
func (s *budgetService) UpsertBudget(ctx context.Context, userID string, year, month int, categoryID *string, amount int64, alertThreshold *float64) (*models.Budget, error) {
	if month < 1 || month > 12 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12")
	}
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be positive")
	}

	threshold := defaultAlertThreshold
	if alertThreshold != nil {
		if *alertThreshold <= 0 || *alertThreshold > 1 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "alert_threshold must be between 0 and 1")
		}
		threshold = *alertThreshold
	}

	if categoryID != nil {
		var count int64
		if err := s.db.Model(&models.Category{}).
			Where("id = ? AND user_id = ?", *categoryID, userID).
			Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.ErrCategoryNotFound
		}
	}

	var budget models.Budget
	err := budgetScope(s.db, userID, year, month, categoryID).First(&budget).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"amount":          amount,
			"alert_threshold": threshold,
			"is_active":       true,
			"is_suggested":    false,
		}
		if err := s.db.Model(&budget).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		budget.Amount = amount
		budget.AlertThreshold = threshold
		budget.IsActive = true
		budget.IsSuggested = false
	case errors.Is(err, gorm.ErrRecordNotFound):
		budget = models.Budget{
			UserID:         userID,
			Year:           year,
			Month:          month,
			CategoryID:     categoryID,
			Amount:         amount,
			AlertThreshold: threshold,
			IsActive:       true,
		}
		if err := s.db.Create(&budget).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	default:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.publisher.Publish(ctx, events.New(events.BudgetChanged, userID, budget.ID)); err != nil {
		logger.Get().Warnw("event publish failed",
			"type", events.BudgetChanged,
			"entity_id", budget.ID,
			"error", err.Error(),
		)
	}

	return &budget, nil
}

// GetUserBudgets retrieves a paginated list of budgets for a month.
func (s *budgetService) GetUserBudgets(userID string, year, month int, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults()

	base := s.db.Model(&models.Budget{}).Where("user_id = ? AND year = ? AND month = ?", userID, year, month)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Preload("Category").Order("category_id ASC").Scopes(pagination.Paginate(page)).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// DeleteBudget removes a budget. Deletion is physical so the period slot can
// be budgeted again later without colliding with the unique index.
func (s *budgetService) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	var budget models.Budget
	if err := s.db.Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrBudgetNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.db.Unscoped().Delete(&budget).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.publisher.Publish(ctx, events.New(events.BudgetChanged, userID, budgetID)); err != nil {
		logger.Get().Warnw("event publish failed",
			"type", events.BudgetChanged,
			"entity_id", budgetID,
			"error", err.Error(),
		)
	}

	return nil
}

// GetBudgetStatus compares each active budget for a month against actual
// spending in that month.
func (s *budgetService) GetBudgetStatus(userID string, year, month int) (*BudgetStatusReport, error) {
	if month < 1 || month > 12 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12")
	}

	var budgets []models.Budget
	if err := s.db.
		Preload("Category").
		Where("user_id = ? AND year = ? AND month = ? AND is_active = ?", userID, year, month, true).
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	// Spending per category plus the month's total
	type row struct {
		CategoryID *string
		Total      int64
	}
	var rows []row
	if err := s.db.Model(&models.Transaction{}).
		Select("category_id, COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND type = ? AND date >= ? AND date < ?", userID, models.TransactionTypeExpense, from, to).
		Group("category_id").
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	spentByCategory := make(map[string]int64, len(rows))
	var totalSpent int64
	for _, r := range rows {
		totalSpent += r.Total
		if r.CategoryID != nil {
			spentByCategory[*r.CategoryID] = r.Total
		}
	}

	report := &BudgetStatusReport{Year: year, Month: month, TotalSpent: totalSpent, Items: []BudgetStatus{}}
	for i := range budgets {
		b := &budgets[i]

		spent := totalSpent
		status := BudgetStatus{
			BudgetID:   b.ID,
			CategoryID: b.CategoryID,
			Budgeted:   b.Amount,
		}
		if b.CategoryID != nil {
			spent = spentByCategory[*b.CategoryID]
			if b.Category != nil {
				status.CategoryName = b.Category.Name
			}
		}

		status.Spent = spent
		status.Remaining = b.Amount - spent
		status.Percentage = pct(spent, b.Amount)
		status.AlertTriggered = float64(spent) >= b.AlertThreshold*float64(b.Amount)

		report.TotalBudgeted += b.Amount
		report.Items = append(report.Items, status)
	}

	return report, nil
}

// SuggestBudgets proposes a per-category budget from average spending over the
// trailing window of full months before the target month.
func (s *budgetService) SuggestBudgets(userID string, year, month int) ([]BudgetSuggestion, error) {
	if month < 1 || month > 12 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12")
	}

	to := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, -suggestionWindowMonths, 0)

	type row struct {
		CategoryID *string
		Name       string
		Total      int64
	}
	var rows []row
	if err := s.db.Model(&models.Transaction{}).
		Select("transactions.category_id, categories.name AS name, COALESCE(SUM(transactions.amount), 0) AS total").
		Joins("JOIN categories ON categories.id = transactions.category_id").
		Where("transactions.user_id = ? AND transactions.type = ? AND transactions.date >= ? AND transactions.date < ?",
			userID, models.TransactionTypeExpense, from, to).
		Group("transactions.category_id, categories.name").
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	suggestions := make([]BudgetSuggestion, 0, len(rows))
	for _, r := range rows {
		if r.CategoryID == nil || r.Total <= 0 {
			continue
		}
		suggestions = append(suggestions, BudgetSuggestion{
			CategoryID:      *r.CategoryID,
			CategoryName:    r.Name,
			SuggestedAmount: r.Total / suggestionWindowMonths,
			BasedOnMonths:   suggestionWindowMonths,
		})
	}
	sort.Slice(suggestions, func(i, j int) bool {
		return suggestions[i].SuggestedAmount > suggestions[j].SuggestedAmount
	})

	return suggestions, nil
}

// ApplySuggestions creates suggested budgets for every category that has
// recent spending but no budget yet for the month. Existing budgets are left
// untouched.
func (s *budgetService) ApplySuggestions(ctx context.Context, userID string, year, month int) ([]models.Budget, error) {
	suggestions, err := s.SuggestBudgets(userID, year, month)
	if err != nil {
		return nil, err
	}

	var created []models.Budget
	for _, suggestion := range suggestions {
		if suggestion.SuggestedAmount <= 0 {
			continue
		}

		categoryID := suggestion.CategoryID
		var count int64
		if err := budgetScope(s.db.Model(&models.Budget{}), userID, year, month, &categoryID).Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			continue
		}

		budget := models.Budget{
			UserID:         userID,
			Year:           year,
			Month:          month,
			CategoryID:     &categoryID,
			Amount:         suggestion.SuggestedAmount,
			AlertThreshold: defaultAlertThreshold,
			IsActive:       true,
			IsSuggested:    true,
		}
		if err := s.db.Create(&budget).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		created = append(created, budget)
	}

	if len(created) > 0 {
		if err := s.publisher.Publish(ctx, events.New(events.BudgetChanged, userID, "")); err != nil {
			logger.Get().Warnw("event publish failed",
				"type", events.BudgetChanged,
				"error", err.Error(),
			)
		}
	}

	return created, nil
}
