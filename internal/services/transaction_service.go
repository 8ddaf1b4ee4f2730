package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/events"
	"moneta/internal/logger"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db        *gorm.DB
	publisher events.Publisher
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, publisher events.Publisher) TransactionServicer {
	return &transactionService{db: db, publisher: publisher}
}

// publish emits a change event. Failures are logged and swallowed so request
// handling never depends on the broker being up.
func (s *transactionService) publish(ctx context.Context, eventType, userID, entityID string) {
	if err := s.publisher.Publish(ctx, events.New(eventType, userID, entityID)); err != nil {
		logger.Get().Warnw("event publish failed",
			"type", eventType,
			"entity_id", entityID,
			"error", err.Error(),
		)
	}
}

// CreateTransaction records a new income or expense transaction
func (s *transactionService) CreateTransaction(ctx context.Context, userID string, input CreateTransactionInput) (*models.Transaction, error) {
	if input.Amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be positive")
	}
	if input.Type != models.TransactionTypeIncome && input.Type != models.TransactionTypeExpense {
		return nil, apperrors.ErrInvalidTransactionType
	}

	// Check that the referenced category exists, belongs to the user, and
	// accepts this transaction type
	if input.CategoryID != nil {
		category, err := s.findCategory(userID, *input.CategoryID)
		if err != nil {
			return nil, err
		}
		if !categoryAccepts(category, input.Type) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category does not accept this transaction type")
		}
	}

	if input.PaymentMethodID != nil {
		if err := s.checkPaymentMethod(userID, *input.PaymentMethodID); err != nil {
			return nil, err
		}
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}

	transaction := &models.Transaction{
		UserID:          userID,
		CategoryID:      input.CategoryID,
		PaymentMethodID: input.PaymentMethodID,
		Type:            input.Type,
		Amount:          input.Amount,
		Currency:        currency,
		Date:            date,
		Note:            input.Note,
		Merchant:        input.Merchant,
		Subcategory:     input.Subcategory,
		Product:         input.Product,
	}

	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.publish(ctx, events.TransactionCreated, userID, transaction.ID)
	return transaction, nil
}

// GetUserTransactions retrieves a paginated, filtered list of transactions.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	if filter.IncludeDeleted {
		base = base.Unscoped().Where("user_id = ?", userID)
	}
	base = applyTransactionFilter(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.
		Preload("Category").
		Preload("PaymentMethod").
		Order("date DESC, created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.
		Preload("Category").
		Preload("PaymentMethod").
		Where("id = ? AND user_id = ?", transactionID, userID).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction updates an existing transaction
func (s *transactionService) UpdateTransaction(ctx context.Context, userID, transactionID string, input UpdateTransactionInput) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if input.Amount != nil {
		if *input.Amount <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be positive")
		}
		updates["amount"] = *input.Amount
	}
	if input.Currency != nil {
		updates["currency"] = *input.Currency
	}
	if input.Date != nil {
		updates["date"] = *input.Date
	}
	if input.CategoryID != nil {
		category, err := s.findCategory(userID, *input.CategoryID)
		if err != nil {
			return nil, err
		}
		if !categoryAccepts(category, transaction.Type) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category does not accept this transaction type")
		}
		updates["category_id"] = *input.CategoryID
	}
	if input.PaymentMethodID != nil {
		if err := s.checkPaymentMethod(userID, *input.PaymentMethodID); err != nil {
			return nil, err
		}
		updates["payment_method_id"] = *input.PaymentMethodID
	}
	if input.Note != nil {
		updates["note"] = *input.Note
	}
	if input.Merchant != nil {
		updates["merchant"] = *input.Merchant
	}
	if input.Subcategory != nil {
		updates["subcategory"] = *input.Subcategory
	}
	if input.Product != nil {
		updates["product"] = *input.Product
	}

	if len(updates) > 0 {
		if err := s.db.Model(transaction).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		s.publish(ctx, events.TransactionUpdated, userID, transactionID)
	}

	return transaction, nil
}

// DeleteTransaction soft-deletes a transaction. It can be restored until purged.
func (s *transactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.publish(ctx, events.TransactionDeleted, userID, transactionID)
	return nil
}

// RestoreTransaction clears the soft-delete marker on a deleted transaction.
func (s *transactionService) RestoreTransaction(ctx context.Context, userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Unscoped().
		Where("id = ? AND user_id = ?", transactionID, userID).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if !transaction.DeletedAt.Valid {
		return nil, apperrors.ErrTransactionNotDeleted
	}

	if err := s.db.Unscoped().Model(&transaction).Update("deleted_at", nil).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	transaction.DeletedAt = gorm.DeletedAt{}

	s.publish(ctx, events.TransactionUpdated, userID, transactionID)
	return &transaction, nil
}

// PurgeTransaction permanently removes a soft-deleted transaction.
func (s *transactionService) PurgeTransaction(ctx context.Context, userID, transactionID string) error {
	var transaction models.Transaction
	if err := s.db.Unscoped().
		Where("id = ? AND user_id = ?", transactionID, userID).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrTransactionNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if !transaction.DeletedAt.Valid {
		return apperrors.ErrTransactionNotDeleted
	}

	if err := s.db.Unscoped().Delete(&transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.publish(ctx, events.TransactionDeleted, userID, transactionID)
	return nil
}

// GetStats aggregates income and expense totals over a date range.
func (s *transactionService) GetStats(userID string, from, to time.Time) (*TransactionStats, error) {
	type row struct {
		Type   models.TransactionType
		Total  int64
		Number int
	}

	var rows []row
	if err := s.db.Model(&models.Transaction{}).
		Select("type, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS number").
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	stats := &TransactionStats{}
	expenseCount := 0
	for _, r := range rows {
		stats.TransactionCount += r.Number
		switch r.Type {
		case models.TransactionTypeIncome:
			stats.TotalIncome += r.Total
		case models.TransactionTypeExpense:
			stats.TotalExpenses += r.Total
			expenseCount += r.Number
		}
	}
	stats.NetCashflow = stats.TotalIncome - stats.TotalExpenses
	if expenseCount > 0 {
		stats.AvgExpense = stats.TotalExpenses / int64(expenseCount)
	}
	return stats, nil
}

// findCategory loads a category belonging to the user.
func (s *transactionService) findCategory(userID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// checkPaymentMethod verifies a payment method exists and belongs to the user.
func (s *transactionService) checkPaymentMethod(userID, methodID string) error {
	var count int64
	if err := s.db.Model(&models.PaymentMethod{}).
		Where("id = ? AND user_id = ?", methodID, userID).
		Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrPaymentMethodNotFound
	}
	return nil
}

func categoryAccepts(category *models.Category, transactionType models.TransactionType) bool {
	switch category.Type {
	case models.CategoryTypeBoth:
		return true
	case models.CategoryTypeIncome:
		return transactionType == models.TransactionTypeIncome
	case models.CategoryTypeExpense:
		return transactionType == models.TransactionTypeExpense
	}
	return false
}

// applyTransactionFilter adds the optional filter clauses to a query.
func applyTransactionFilter(query *gorm.DB, filter TransactionFilter) *gorm.DB {
	if filter.FromDate != nil {
		query = query.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("date <= ?", *filter.ToDate)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.PaymentMethodID != nil {
		query = query.Where("payment_method_id = ?", *filter.PaymentMethodID)
	}
	if filter.MinAmount != nil {
		query = query.Where("amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("amount <= ?", *filter.MaxAmount)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("merchant LIKE ? OR note LIKE ?", like, like)
	}
	return query
}
